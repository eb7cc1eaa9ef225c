package model

// Contact is the data structure for a person that we know. The Id is assigned by the service when
// the contact is created and never changes afterwards.
type Contact struct {
	Id    int64  `json:"id"    db:"id"    yaml:"-"`
	Name  string `json:"name"  db:"name"  yaml:"name"`
	Phone string `json:"phone" db:"phone" yaml:"phone"`
	Email string `json:"email" db:"email" yaml:"email"`
}

// Candidate is the request body for creating a contact. Only the name has to be present, phone
// and email default to the empty string. An id sent by the client is ignored.
type Candidate struct {
	Name  *string `json:"name"  binding:"required"`
	Phone *string `json:"phone"`
	Email *string `json:"email"`
}

// Contact turns the candidate into a contact without id.
func (c Candidate) Contact() Contact {
	var contact Contact
	if c.Name != nil {
		contact.Name = *c.Name
	}
	if c.Phone != nil {
		contact.Phone = *c.Phone
	}
	if c.Email != nil {
		contact.Email = *c.Email
	}
	return contact
}

// ErrorMessage is the response body of every failed request.
type ErrorMessage struct {
	Message string `json:"message"`
}
