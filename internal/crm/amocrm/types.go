package amocrm

// FieldValue is a single value of a custom field.
type FieldValue struct {
	Value    any    `json:"value"`
	EnumCode string `json:"enum_code,omitempty"`
}

// CustomField addresses an amoCRM custom field either by numeric id
// (account-specific fields) or by well-known code (PHONE, EMAIL, UTM_*).
type CustomField struct {
	FieldID   int          `json:"field_id,omitempty"`
	FieldCode string       `json:"field_code,omitempty"`
	Values    []FieldValue `json:"values"`
}

// Lead is an outbound lead payload.
type Lead struct {
	Name         string
	Price        int
	PipelineID   int
	CustomFields []CustomField
}

// Task types defined by amoCRM.
const (
	TaskTypeCall    = 1
	TaskTypeMeeting = 2
)

// Entity types for tasks and notes.
const (
	EntityLeads    = "leads"
	EntityContacts = "contacts"
)

// Task is an outbound task payload. CompleteTill is a Unix timestamp.
type Task struct {
	TaskTypeID   int    `json:"task_type_id"`
	Text         string `json:"text"`
	CompleteTill int64  `json:"complete_till"`
	EntityID     int    `json:"entity_id"`
	EntityType   string `json:"entity_type"`
}

// embeddedEntity is the id-bearing element of amoCRM's _embedded lists.
type embeddedEntity struct {
	ID int `json:"id"`
}

// embeddedResponse is the common shape of amoCRM v4 create/search replies.
type embeddedResponse struct {
	Embedded struct {
		Contacts []embeddedEntity `json:"contacts"`
		Leads    []embeddedEntity `json:"leads"`
		Tasks    []embeddedEntity `json:"tasks"`
	} `json:"_embedded"`
}
