package domain

import "time"

// Dog is a pet profile owned by exactly one user.
type Dog struct {
	ID          int64
	AccessCode  string
	Name        string
	Breed       *string
	Age         *int
	WeightKg    *float64
	Description *string
	PhotoURL    *string
	OwnerID     int64
	CreatedAt   time.Time
}

// DogProfile aggregates everything shown on a dog's page.
type DogProfile struct {
	Dog       Dog
	Owner     User
	Walks     []Walk
	Trainings []Training
	Media     []Media
}

// DogPatch carries optional dog fields; nil means unchanged.
type DogPatch struct {
	Name        *string
	Breed       *string
	Age         *int
	WeightKg    *float64
	Description *string
	PhotoURL    *string
	OwnerID     *int64
}

// Empty reports whether the patch changes nothing.
func (p DogPatch) Empty() bool {
	return p.Name == nil && p.Breed == nil && p.Age == nil && p.WeightKg == nil &&
		p.Description == nil && p.PhotoURL == nil && p.OwnerID == nil
}

// Apply returns a copy of d with the provided fields replaced.
func (p DogPatch) Apply(d Dog) Dog {
	if p.Name != nil {
		d.Name = *p.Name
	}
	if p.Breed != nil {
		d.Breed = p.Breed
	}
	if p.Age != nil {
		d.Age = p.Age
	}
	if p.WeightKg != nil {
		d.WeightKg = p.WeightKg
	}
	if p.Description != nil {
		d.Description = p.Description
	}
	if p.PhotoURL != nil {
		d.PhotoURL = p.PhotoURL
	}
	if p.OwnerID != nil {
		d.OwnerID = *p.OwnerID
	}
	return d
}
