package urlgen

import (
	"github.com/brianvoe/gofakeit/v6"
)

// FakerSource produces realistic-looking URLs via gofakeit.
// Its output does not follow Options and is meant for comparison corpora.
type FakerSource struct {
	faker *gofakeit.Faker
}

// NewFakerSource returns a FakerSource. A zero seed picks a random one.
func NewFakerSource(seed int64) *FakerSource {
	return &FakerSource{faker: gofakeit.New(seed)}
}

// URL returns one faker URL.
func (f *FakerSource) URL() string {
	return f.faker.URL()
}

// AppendURL implements Source.
func (f *FakerSource) AppendURL(dst []byte) []byte {
	return append(dst, f.faker.URL()...)
}
