package normalize

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"agency-sync-server/internal/domain"
)

type Kind int

const (
	KindRecord Kind = iota
	KindList
)

func (k Kind) String() string {
	if k == KindList {
		return "list"
	}
	return "record"
}

var errShape = errors.New("unexpected shape")

// Field describes one top-level key of the Document and how a remote value
// for it is folded into a merged document. merge reports values it could
// not take in full; the lenient merge ignores those reports.
type Field struct {
	Name string
	Kind Kind
	// ServerOwned fields are maintained by the server and ignored in
	// client edits.
	ServerOwned bool

	merge func(dst *domain.Document, raw json.RawMessage) error
	value func(doc *domain.Document) any
	copy  func(dst, src *domain.Document)
}

// Value returns the field's current value in doc.
func (f Field) Value(doc *domain.Document) any {
	return f.value(doc)
}

// ListField declares a "many of T" collection. The value already in the
// destination (the seed) is the fallback for an absent or misshapen value.
// Elements that do not decode are kept in Document.Unparsed.
func ListField[T any](name string, ref func(*domain.Document) *[]T) Field {
	return Field{
		Name: name,
		Kind: KindList,
		merge: func(dst *domain.Document, raw json.RawMessage) error {
			if absent(raw) {
				return nil
			}
			list, rejected, ok := Decode[T](raw)
			if !ok {
				return fmt.Errorf("%s: %w", name, errShape)
			}
			*ref(dst) = list
			dst.SetUnparsed(name, rejected)
			if len(rejected) > 0 {
				return fmt.Errorf("%s: %d element(s) do not match the schema", name, len(rejected))
			}
			return nil
		},
		value: func(doc *domain.Document) any { return *ref(doc) },
		copy:  func(dst, src *domain.Document) { *ref(dst) = *ref(src) },
	}
}

// RecordField declares a fixed-shape value. A present remote value replaces
// the seed wholesale; one that does not decode as T keeps the seed.
func RecordField[T any](name string, ref func(*domain.Document) *T) Field {
	return Field{
		Name: name,
		Kind: KindRecord,
		merge: func(dst *domain.Document, raw json.RawMessage) error {
			if absent(raw) {
				return nil
			}
			var value T
			if err := json.Unmarshal(raw, &value); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			*ref(dst) = value
			return nil
		},
		value: func(doc *domain.Document) any { return *ref(doc) },
		copy:  func(dst, src *domain.Document) { *ref(dst) = *ref(src) },
	}
}

func serverOwned(f Field) Field {
	f.ServerOwned = true
	return f
}

func absent(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, null)
}

// Schema lists every Document key. It must stay in step with domain.Document.
var Schema = []Field{
	RecordField("siteConfig", func(d *domain.Document) *domain.SiteConfig { return &d.SiteConfig }),
	RecordField("contactInfo", func(d *domain.Document) *domain.ContactInfo { return &d.ContactInfo }),
	RecordField("socialLinks", func(d *domain.Document) *domain.SocialLinks { return &d.SocialLinks }),
	RecordField("siteImages", func(d *domain.Document) *map[string]string { return &d.SiteImages }),
	serverOwned(RecordField("syncMetadata", func(d *domain.Document) **domain.SyncMetadata { return &d.SyncMetadata })),

	ListField("models", func(d *domain.Document) *[]domain.Model { return &d.Models }),
	ListField("beginnerStudents", func(d *domain.Document) *[]domain.Student { return &d.BeginnerStudents }),
	ListField("juryMembers", func(d *domain.Document) *[]domain.JuryMember { return &d.JuryMembers }),
	ListField("registrationStaff", func(d *domain.Document) *[]domain.StaffMember { return &d.RegistrationStaff }),
	ListField("juryEvaluations", func(d *domain.Document) *[]domain.Evaluation { return &d.JuryEvaluations }),
	ListField("castingApplications", func(d *domain.Document) *[]domain.CastingApplication { return &d.CastingApplications }),
	ListField("fashionDayApplications", func(d *domain.Document) *[]domain.FashionDayApplication { return &d.FashionDayApplications }),
	ListField("fashionDayEvents", func(d *domain.Document) *[]domain.FashionDayEvent { return &d.FashionDayEvents }),
	ListField("bookingRequests", func(d *domain.Document) *[]domain.BookingRequest { return &d.BookingRequests }),
	ListField("contactMessages", func(d *domain.Document) *[]domain.ContactMessage { return &d.ContactMessages }),
	ListField("notifications", func(d *domain.Document) *[]domain.Notification { return &d.Notifications }),
	ListField("accountingTransactions", func(d *domain.Document) *[]domain.AccountingTransaction { return &d.AccountingTransactions }),
	ListField("monthlyPayments", func(d *domain.Document) *[]domain.MonthlyPayment { return &d.MonthlyPayments }),
	ListField("contracts", func(d *domain.Document) *[]domain.Contract { return &d.Contracts }),
	ListField("articles", func(d *domain.Document) *[]domain.Article { return &d.Articles }),
	ListField("newsItems", func(d *domain.Document) *[]domain.NewsItem { return &d.NewsItems }),
	ListField("agencyServices", func(d *domain.Document) *[]domain.AgencyService { return &d.AgencyServices }),
	ListField("testimonials", func(d *domain.Document) *[]domain.Testimonial { return &d.Testimonials }),
	ListField("agencyPartners", func(d *domain.Document) *[]domain.Partner { return &d.AgencyPartners }),
	ListField("portfolioImages", func(d *domain.Document) *[]domain.PortfolioImage { return &d.PortfolioImages }),
	ListField("courseData", func(d *domain.Document) *[]domain.CourseModule { return &d.CourseData }),
	ListField("faqData", func(d *domain.Document) *[]domain.FAQCategory { return &d.FAQData }),
}

var schemaIndex = func() map[string]Field {
	index := make(map[string]Field, len(Schema))
	for _, f := range Schema {
		index[f.Name] = f
	}
	return index
}()

// Lookup returns the schema field for a top-level key.
func Lookup(name string) (Field, bool) {
	f, ok := schemaIndex[name]
	return f, ok
}

// Merge builds the Merged Document: seed values for keys the remote payload
// lacks, normalized remote values for keys it has, and unknown remote keys
// kept in Extras. Only a payload that is not a JSON object is an error.
func Merge(seed *domain.Document, raw json.RawMessage) (*domain.Document, error) {
	remote, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}

	merged := seed.Clone()
	for _, f := range Schema {
		f.merge(merged, remote[f.Name])
	}
	keepExtras(merged, remote)
	return merged, nil
}

// MergeStrict applies a client edit over base. Unlike Merge it rejects any
// value that does not fully decode, wrapping domain.ErrValidation, and it
// ignores server-owned fields. changed names the schema fields the edit
// sets.
func MergeStrict(base *domain.Document, raw json.RawMessage) (merged *domain.Document, changed []string, err error) {
	edit, err := decodeObject(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	merged = base.Clone()
	var problems []error
	for _, f := range Schema {
		value, ok := edit[f.Name]
		if !ok || f.ServerOwned {
			continue
		}
		if err := f.merge(merged, value); err != nil {
			problems = append(problems, err)
			continue
		}
		changed = append(changed, f.Name)
	}
	if len(problems) > 0 {
		return nil, nil, fmt.Errorf("%w: %w", domain.ErrValidation, errors.Join(problems...))
	}

	keepExtras(merged, edit)
	return merged, changed, nil
}

// Project returns a document holding only the named fields of doc, for
// validating just what an edit touched.
func Project(doc *domain.Document, names []string) *domain.Document {
	out := &domain.Document{}
	for _, name := range names {
		if f, ok := schemaIndex[name]; ok {
			f.copy(out, doc)
		}
	}
	return out
}

func decodeObject(raw json.RawMessage) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	if fields == nil {
		return nil, fmt.Errorf("decode document: %w", errShape)
	}
	return fields, nil
}

func keepExtras(dst *domain.Document, fields map[string]json.RawMessage) {
	for key, value := range fields {
		if _, known := schemaIndex[key]; known {
			continue
		}
		if dst.Extras == nil {
			dst.Extras = make(map[string]json.RawMessage)
		}
		dst.Extras[key] = value
	}
}
