package model

import "time"

// Registrant represents a successfully admitted registration.  A
// registrant is bound to exactly one slot and is immutable once
// admitted; the only mutation the system ever performs afterwards is
// an administrative delete, which frees the seat.  IdentityKey is the
// normalized WhatsApp number and is unique across every slot — it is
// what makes a person registered "exactly once" system wide.
//
// Fields:
//  ID           – uuid primary key.
//  IdentityKey  – normalized WhatsApp number (unique).
//  SlotID       – slot the registrant was admitted into.
//  Name         – student name.
//  FathersName  – optional father's name.
//  Email        – contact email.
//  DateOfBirth  – date of birth (YYYY-MM-DD).
//  TajweedLevel – self-reported tajweed level.
//  CreatedAt    – admission timestamp.
type Registrant struct {
	ID           string    `json:"id"`            // registrations.id
	IdentityKey  string    `json:"identity_key"`  // registrations.identity_key
	SlotID       uint64    `json:"slot_id"`       // registrations.slot_id
	Name         string    `json:"name"`          // registrations.name
	FathersName  string    `json:"fathers_name"`  // registrations.fathers_name
	Email        string    `json:"email"`         // registrations.email
	DateOfBirth  string    `json:"date_of_birth"` // registrations.date_of_birth
	TajweedLevel string    `json:"tajweed_level"` // registrations.tajweed_level
	CreatedAt    time.Time `json:"created_at"`    // registrations.created_at
}
