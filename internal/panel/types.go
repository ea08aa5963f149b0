package panel

// Client is one access record inside the inbound's embedded settings JSON.
// Field tags follow the x-ui wire shape. TgID links the record to its owning
// Telegram user; 0 means the record is unowned and never notified.
type Client struct {
	ID         string `json:"id"`
	Flow       string `json:"flow,omitempty"`
	Email      string `json:"email"`
	LimitIP    int    `json:"limitIp,omitempty"`
	TotalGB    int64  `json:"totalGB,omitempty"`
	ExpiryTime int64  `json:"expiryTime,omitempty"`
	Enable     bool   `json:"enable"`
	TgID       int64  `json:"tgId,omitempty"`
	SubID      string `json:"subId,omitempty"`
	Comment    string `json:"comment,omitempty"`
}

// InboundMeta is the network/security metadata of the panel's inbound,
// flattened from the inbounds row and its embedded stream settings JSON.
type InboundMeta struct {
	Listen      string
	Port        int
	Remark      string
	Network     string
	Security    string
	PublicKey   string
	Fingerprint string
	ServerName  string
	ShortID     string
}

// Traffic is the per-email byte counters row. A missing row means
// "stats unavailable", not zero.
type Traffic struct {
	Email string
	Up    int64
	Down  int64
}
