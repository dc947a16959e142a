package gateway

import (
	"strconv"
	"sync"

	"github.com/brianvoe/gofakeit/v7"
)

// Faker produces synthetic person data. gofakeit.Faker is not safe for
// concurrent use, so every draw takes the lock.
type Faker struct {
	mu sync.Mutex
	f  *gofakeit.Faker
}

// NewFaker returns a Faker seeded with seed.
func NewFaker(seed uint64) *Faker {
	return &Faker{f: gofakeit.New(seed)}
}

// Person is a generated name pair.
type Person struct {
	FirstNames string
	FamilyName string
}

func (p *Faker) Person() Person {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Person{FirstNames: p.f.FirstName(), FamilyName: p.f.LastName()}
}

// NationalID returns a nine-digit identifier.
func (p *Faker) NationalID() string {
	return strconv.Itoa(p.IntRange(100000000, 999999999))
}

// PhoneNumber returns a local mobile number.
func (p *Faker) PhoneNumber() string {
	return "+2607" + strconv.Itoa(p.IntRange(10000000, 99999999))
}

func (p *Faker) IntRange(min, max int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.f.IntRange(min, max)
}

func (p *Faker) Float64() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.f.Float64()
}

func (p *Faker) Email() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.f.Email()
}

// Address is a street address inside a district.
type Address struct {
	City       string
	PostalCode string
	Street     string
}

func (p *Faker) Address() Address {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Address{City: p.f.City(), PostalCode: p.f.Zip(), Street: p.f.Street()}
}
