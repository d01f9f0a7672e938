package session

// AnonymousName is the display name used when a submission carries none.
const AnonymousName = "anonymous"

// TimeLayout is the wire and storage format for message timestamps.
const TimeLayout = "2006-01-02 15:04:05"

// Message is one persisted comment. StampURL is derived from Stamp on every
// read and is never written to the store.
type Message struct {
	Name     string `json:"name"`
	RealName string `json:"real_name"`
	Text     string `json:"text"`
	Time     string `json:"time"`
	Stamp    string `json:"stamp,omitempty"`
	StampURL string `json:"stamp_url"`
}
