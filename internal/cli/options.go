package cli

import "time"

type Options struct {
	// Target is the command or page path, e.g. "login" or "/sales/12".
	Target string
	Query  string

	JSON        bool
	Interactive bool
	Timeout     time.Duration

	Page          int
	Limit         int
	Search        string
	Status        string
	PaymentStatus string
	Supplier      string
	Period        string
	From          string
	To            string

	File    string
	Find    string
	Approve string
	Delete  bool
	Audit   bool
	PDF     string
	PDFURL  bool
	Pay     float64
	Method  string

	Username string
	Password string

	LLMBaseURL string
	LLMAPIKey  string
	LLMModel   string
}
