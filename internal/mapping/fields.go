package mapping

import "github.com/campaign-vault/backend/internal/models"

// Field is a canonical contact attribute that a CSV column can be mapped to.
type Field string

const (
	FirstName   Field = "firstName"
	LastName    Field = "lastName"
	Email       Field = "email"
	Company     Field = "company"
	Title       Field = "title"
	Phone       Field = "phone"
	Location    Field = "location"
	LinkedInURL Field = "linkedinUrl"
)

// AllFields lists the canonical fields in proposal and validation order.
var AllFields = []Field{FirstName, LastName, Email, Company, Title, Phone, Location, LinkedInURL}

var requiredFields = map[Field]bool{
	FirstName: true,
	LastName:  true,
	Email:     true,
}

// SearchableFields are the attributes matched by contact search.
var SearchableFields = []Field{FirstName, LastName, Email, Company, Title}

func (f Field) Required() bool { return requiredFields[f] }

func (f Field) Valid() bool {
	for _, known := range AllFields {
		if f == known {
			return true
		}
	}
	return false
}

// Value returns the attribute of c that f names.
func Value(c models.ContactFields, f Field) string {
	switch f {
	case FirstName:
		return c.FirstName
	case LastName:
		return c.LastName
	case Email:
		return c.Email
	case Company:
		return c.Company
	case Title:
		return c.Title
	case Phone:
		return c.Phone
	case Location:
		return c.Location
	case LinkedInURL:
		return c.LinkedInURL
	}
	return ""
}

func RequiredFields() []Field {
	var out []Field
	for _, f := range AllFields {
		if f.Required() {
			out = append(out, f)
		}
	}
	return out
}

var defaultAliases = map[Field][]string{
	FirstName:   {"first name", "firstname", "fname", "first", "given name", "forename"},
	LastName:    {"last name", "lastname", "lname", "last", "surname", "family name"},
	Email:       {"email", "e-mail", "email address", "mail", "work email", "business email"},
	Company:     {"company", "company name", "organization", "organisation", "org", "employer", "account name"},
	Title:       {"title", "job title", "position", "role", "designation"},
	Phone:       {"phone", "phone number", "telephone", "tel", "mobile", "mobile phone", "cell"},
	Location:    {"location", "city", "address", "region", "country"},
	LinkedInURL: {"linkedin", "linkedin url", "linkedin profile", "person linkedin url"},
}
