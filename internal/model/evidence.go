package model

// EvidenceItem describes a document or record supplied by the caller
type EvidenceItem struct {
	Name    string `json:"name" yaml:"name" validate:"required,max=500"` // File or exhibit name
	Type    string `json:"type" yaml:"type" validate:"max=200"`          // Declared type (e.g. "contract", "payslip", "application/pdf")
	Content string `json:"content,omitempty" yaml:"content,omitempty"`   // Extracted text, if any
}

// ConversationTurn is one message of a prior intake conversation
type ConversationTurn struct {
	Role    string `json:"role" yaml:"role" validate:"required,oneof=user assistant system"`
	Content string `json:"content" yaml:"content" validate:"max=20000"`
}

// Complaint is the immutable input of a single analysis
type Complaint struct {
	Text    string             // Raw complaint text (may be empty when History carries it)
	History []ConversationTurn // Optional prior conversation
	Notes   string             // Optional additional information from the caller
}

// IsEmpty reports whether the complaint has neither text nor history
func (c Complaint) IsEmpty() bool {
	return isBlank(c.Text) && len(c.History) == 0
}
