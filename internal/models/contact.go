package models

// Contact represents a message recipient
type Contact struct {
	ID               int64             `json:"id"`
	Phone            string            `json:"phone"`
	FirstName        string            `json:"first_name"`
	LastName         string            `json:"last_name"`
	Location         string            `json:"location"`
	PreferredProduct string            `json:"preferred_product"`
	Attributes       map[string]string `json:"attributes,omitempty"`
}

// Fields returns the flat placeholder map used by template rendering.
// Built-in fields win over custom attributes of the same name.
func (c *Contact) Fields() map[string]string {
	fields := make(map[string]string, len(c.Attributes)+5)
	for k, v := range c.Attributes {
		fields[k] = v
	}
	fields["first_name"] = c.FirstName
	fields["last_name"] = c.LastName
	fields["location"] = c.Location
	fields["preferred_product"] = c.PreferredProduct
	fields["phone"] = c.Phone
	return fields
}

// Validate performs basic validation on contact data
func (c *Contact) Validate() error {
	if c.Phone == "" {
		return ErrInvalidInput("phone is required")
	}
	return nil
}
