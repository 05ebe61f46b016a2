package domain

type Client struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Address   string `json:"address,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Status    string `json:"status" enum:"active,archived"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type ContactPerson struct {
	ID        string `json:"id"`
	ClientID  string `json:"client_id"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Title     string `json:"title,omitempty"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type Department struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	ManagerID *string `json:"manager_id,omitempty"`
	CreatedAt string  `json:"created_at" format:"date-time"`
}

type Personnel struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Email        string  `json:"email,omitempty"`
	DepartmentID *string `json:"department_id,omitempty"`
	Role         string  `json:"role,omitempty"`
	Status       string  `json:"status" enum:"active,inactive"`
	CreatedAt    string  `json:"created_at" format:"date-time"`
}

type Project struct {
	ID             string   `json:"id"`
	ClientID       string   `json:"client_id"`
	Name           string   `json:"name"`
	Description    string   `json:"description,omitempty"`
	Status         string   `json:"status" enum:"active,completed,archived"`
	ContactPersons []string `json:"contact_persons,omitempty"`
	CreatedAt      string   `json:"created_at" format:"date-time"`
}

// RFI is the aggregate record for a request-for-information thread.
// Which participant fields are populated depends on InitiationType.
type RFI struct {
	ID              string                `json:"id"`
	InitiationType  string                `json:"initiation_type" enum:"internal_internal,internal_external,external_internal"`
	Subject         string                `json:"subject"`
	Description     string                `json:"description"`
	ProjectID       *string               `json:"project_id,omitempty"`
	ClientID        *string               `json:"client_id,omitempty"`
	LabInitiator    *string               `json:"lab_initiator,omitempty"`
	ClientInitiator *string               `json:"client_initiator,omitempty"`
	LabReceivers    []string              `json:"lab_receivers,omitempty"`
	ClientReceivers []string              `json:"client_receivers,omitempty"`
	Status          string                `json:"status" enum:"open,in_progress,resolved"`
	DateSubmitted   string                `json:"date_submitted" format:"date-time"`
	DateResolved    *string               `json:"date_resolved,omitempty" format:"date-time"`
	Conversation    []ConversationMessage `json:"conversation"`
	StatusHistory   []StatusHistoryEntry  `json:"status_history"`
	Attachments     []Attachment          `json:"attachments,omitempty"`
	CreatedAt       string                `json:"created_at" format:"date-time"`
	UpdatedAt       string                `json:"updated_at" format:"date-time"`
}

// ConversationMessage is one entry of an RFI conversation. Exactly one of
// LabSender/ClientSender is set, selected by SentByClient.
type ConversationMessage struct {
	Key                string       `json:"key"`
	RFIID              string       `json:"rfi_id"`
	Message            string       `json:"message"`
	SentByClient       bool         `json:"sent_by_client"`
	LabSender          *string      `json:"lab_sender,omitempty"`
	ClientSender       *string      `json:"client_sender,omitempty"`
	IsOfficialResponse bool         `json:"is_official_response"`
	Attachments        []Attachment `json:"attachments,omitempty"`
	Timestamp          string       `json:"timestamp" format:"date-time"`
}

type StatusHistoryEntry struct {
	ID             int64  `json:"id"`
	RFIID          string `json:"rfi_id"`
	Status         string `json:"status" enum:"open,in_progress,resolved"`
	PreviousStatus string `json:"previous_status,omitempty"`
	ChangedBy      string `json:"changed_by"`
	Reason         string `json:"reason,omitempty"`
	TS             string `json:"ts" format:"date-time"`
}

type Attachment struct {
	ID          string `json:"id"`
	OwnerKind   string `json:"owner_kind" enum:"rfi,message,receipt"`
	OwnerID     string `json:"owner_id"`
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type,omitempty"`
	SizeBytes   int64  `json:"size_bytes,omitempty"`
	CreatedAt   string `json:"created_at" format:"date-time"`
}

type SampleReceipt struct {
	ID         string            `json:"id"`
	ProjectID  string            `json:"project_id"`
	ClientID   string            `json:"client_id"`
	ReceivedBy string            `json:"received_by"`
	Status     string            `json:"status" enum:"draft,submitted,approved,rejected,sent_to_client,client_acknowledged"`
	Samples    []SampleLine      `json:"samples"`
	Decisions  []ReceiptDecision `json:"decisions"`
	CreatedAt  string            `json:"created_at" format:"date-time"`
	UpdatedAt  string            `json:"updated_at" format:"date-time"`
}

type SampleLine struct {
	ID          string `json:"id"`
	ReceiptID   string `json:"receipt_id"`
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	Condition   string `json:"condition,omitempty"`
}

type ReceiptDecision struct {
	ID             int64  `json:"id"`
	ReceiptID      string `json:"receipt_id"`
	Status         string `json:"status"`
	PreviousStatus string `json:"previous_status"`
	DecidedBy      string `json:"decided_by"`
	Note           string `json:"note,omitempty"`
	TS             string `json:"ts" format:"date-time"`
}

type Quotation struct {
	ID         string          `json:"id"`
	Number     string          `json:"number"`
	ProjectID  string          `json:"project_id"`
	ClientID   string          `json:"client_id"`
	RevisionOf *string         `json:"revision_of,omitempty"`
	Revision   int             `json:"revision"`
	Status     string          `json:"status" enum:"draft,issued,accepted,declined"`
	Currency   string          `json:"currency"`
	TaxPercent float64         `json:"tax_percent"`
	Subtotal   float64         `json:"subtotal"`
	Tax        float64         `json:"tax"`
	Total      float64         `json:"total"`
	Items      []QuotationItem `json:"items"`
	IssuedAt   *string         `json:"issued_at,omitempty" format:"date-time"`
	CreatedAt  string          `json:"created_at" format:"date-time"`
	UpdatedAt  string          `json:"updated_at" format:"date-time"`
}

type QuotationItem struct {
	ID          string  `json:"id"`
	QuotationID string  `json:"quotation_id"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Amount      float64 `json:"amount"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}

type APIKey struct {
	ID        string `json:"id"`
	ActorID   string `json:"actor_id"`
	Name      string `json:"name,omitempty"`
	KeyHash   string `json:"key_hash"`
	CreatedAt string `json:"created_at" format:"date-time"`
}
