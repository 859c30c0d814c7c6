package sampler

import (
	"strings"

	"github.com/brianvoe/gofakeit/v7"
)

// filler synthesizes plausible filler text for categorical draws that land
// in the "other" bucket, instead of emitting null. The generator is picked
// once per column from the column name; the faker is seeded from the run's
// deterministic substream so filled values reproduce across runs.
type filler struct {
	faker *gofakeit.Faker
	gen   func(f *gofakeit.Faker) string
}

func newFiller(colName string, seed uint64) *filler {
	return &filler{
		faker: gofakeit.New(seed),
		gen:   fillGenerator(colName),
	}
}

func (fl *filler) fill() string {
	return fl.gen(fl.faker)
}

// fillGenerator maps a column name onto a faker call, most specific first.
func fillGenerator(colName string) func(f *gofakeit.Faker) string {
	name := strings.ToLower(colName)
	switch {
	case name == "email" || strings.HasSuffix(name, "_email"):
		return func(f *gofakeit.Faker) string { return f.Email() }
	case strings.Contains(name, "first_name") || strings.Contains(name, "firstname"):
		return func(f *gofakeit.Faker) string { return f.FirstName() }
	case strings.Contains(name, "last_name") || strings.Contains(name, "lastname"):
		return func(f *gofakeit.Faker) string { return f.LastName() }
	case name == "name" || strings.HasSuffix(name, "_name"):
		return func(f *gofakeit.Faker) string { return f.Name() }
	case strings.Contains(name, "phone"):
		return func(f *gofakeit.Faker) string { return f.Phone() }
	case strings.Contains(name, "username") || name == "login":
		return func(f *gofakeit.Faker) string { return f.Username() }
	case name == "city":
		return func(f *gofakeit.Faker) string { return f.City() }
	case name == "country" || name == "country_code":
		return func(f *gofakeit.Faker) string { return f.Country() }
	case strings.Contains(name, "url") || strings.Contains(name, "website"):
		return func(f *gofakeit.Faker) string { return f.URL() }
	case strings.Contains(name, "company") || name == "organization":
		return func(f *gofakeit.Faker) string { return f.Company() }
	case name == "description" || name == "bio" || name == "summary":
		return func(f *gofakeit.Faker) string { return f.Sentence(10) }
	default:
		return func(f *gofakeit.Faker) string { return f.Word() }
	}
}
