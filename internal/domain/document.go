package domain

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/tiendc/go-deepcopy"
)

// Document is the single aggregate stored at the remote root. Every
// "many of X" collection is an ordered slice; records are plain structs.
type Document struct {
	SiteConfig   SiteConfig        `json:"siteConfig"`
	ContactInfo  ContactInfo       `json:"contactInfo"`
	SocialLinks  SocialLinks       `json:"socialLinks"`
	SiteImages   map[string]string `json:"siteImages"`
	SyncMetadata *SyncMetadata     `json:"syncMetadata,omitempty"`

	Models                 []Model                 `json:"models" validate:"dive"`
	BeginnerStudents       []Student               `json:"beginnerStudents" validate:"dive"`
	JuryMembers            []JuryMember            `json:"juryMembers" validate:"dive"`
	RegistrationStaff      []StaffMember           `json:"registrationStaff" validate:"dive"`
	JuryEvaluations        []Evaluation            `json:"juryEvaluations" validate:"dive"`
	CastingApplications    []CastingApplication    `json:"castingApplications" validate:"dive"`
	FashionDayApplications []FashionDayApplication `json:"fashionDayApplications" validate:"dive"`
	FashionDayEvents       []FashionDayEvent       `json:"fashionDayEvents" validate:"dive"`
	BookingRequests        []BookingRequest        `json:"bookingRequests" validate:"dive"`
	ContactMessages        []ContactMessage        `json:"contactMessages" validate:"dive"`
	Notifications          []Notification          `json:"notifications" validate:"dive"`
	AccountingTransactions []AccountingTransaction `json:"accountingTransactions" validate:"dive"`
	MonthlyPayments        []MonthlyPayment        `json:"monthlyPayments" validate:"dive"`
	Contracts              []Contract              `json:"contracts" validate:"dive"`
	Articles               []Article               `json:"articles" validate:"dive"`
	NewsItems              []NewsItem              `json:"newsItems" validate:"dive"`
	AgencyServices         []AgencyService         `json:"agencyServices" validate:"dive"`
	Testimonials           []Testimonial           `json:"testimonials" validate:"dive"`
	AgencyPartners         []Partner               `json:"agencyPartners" validate:"dive"`
	PortfolioImages        []PortfolioImage        `json:"portfolioImages" validate:"dive"`
	CourseData             []CourseModule          `json:"courseData" validate:"dive"`
	FAQData                []FAQCategory           `json:"faqData"`

	// Extras holds remote keys this schema does not know about. They are
	// written back untouched so a full overwrite never drops them.
	Extras map[string]json.RawMessage `json:"-"`

	// Unparsed holds, per list collection, remote elements that do not
	// decode into the entity type. They are appended to their collection
	// on write so a save never drops them.
	Unparsed map[string][]json.RawMessage `json:"-"`
}

type SiteConfig struct {
	AgencyName string `json:"agencyName"`
	Tagline    string `json:"tagline"`
	LogoURL    string `json:"logoUrl"`
	Currency   string `json:"currency"`
}

type ContactInfo struct {
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

type SocialLinks struct {
	Facebook  string `json:"facebook"`
	Instagram string `json:"instagram"`
	Youtube   string `json:"youtube"`
}

// Clone returns a deep copy safe to mutate and hand to Save.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	var out Document
	if err := deepcopy.Copy(&out, *d); err != nil {
		// deepcopy only fails on unsupported kinds, which the schema does not use
		panic(fmt.Sprintf("domain: clone document: %v", err))
	}
	return &out
}

// SetUnparsed records the elements of collection that did not decode,
// replacing any recorded before.
func (d *Document) SetUnparsed(collection string, elements []json.RawMessage) {
	if len(elements) == 0 {
		delete(d.Unparsed, collection)
		return
	}
	if d.Unparsed == nil {
		d.Unparsed = make(map[string][]json.RawMessage)
	}
	d.Unparsed[collection] = elements
}

// UnparsedCollections lists the collections holding undecodable elements.
func (d *Document) UnparsedCollections() []string {
	names := make([]string, 0, len(d.Unparsed))
	for name := range d.Unparsed {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MarshalJSON writes the schema fields, appends Unparsed elements to their
// collections, then adds any Extras the schema does not shadow.
func (d Document) MarshalJSON() ([]byte, error) {
	type plain Document
	base, err := json.Marshal(plain(d))
	if err != nil || (len(d.Extras) == 0 && len(d.Unparsed) == 0) {
		return base, err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(base, &fields); err != nil {
		return nil, err
	}
	for key, elements := range d.Unparsed {
		var list []json.RawMessage
		if raw, ok := fields[key]; ok {
			if err := json.Unmarshal(raw, &list); err != nil {
				return nil, fmt.Errorf("collection %s: %w", key, err)
			}
		}
		merged, err := json.Marshal(append(list, elements...))
		if err != nil {
			return nil, err
		}
		fields[key] = merged
	}
	for key, value := range d.Extras {
		if _, known := fields[key]; !known {
			fields[key] = value
		}
	}
	return json.Marshal(fields)
}
