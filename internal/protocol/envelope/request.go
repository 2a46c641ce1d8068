package envelope

import (
	"encoding/json"
	"time"
)

// Request kinds understood by the server.
const (
	KindProxyConfig      = "proxy config"
	KindHistoryData      = "history data"
	KindProxyHeartbeat   = "proxy heartbeat"
	KindAutoRegistration = "auto registration"
)

// emptyObject is returned by Request.String when marshalling fails.
const emptyObject = "{}"

// now is the wall clock used to stamp requests and payload records.
var now = time.Now

// Request is the metadata wrapper around every outbound payload.
type Request struct {
	Request string `json:"request"`
	Host    string `json:"host"`
	Clock   int64  `json:"clock"`
	NS      int64  `json:"ns"`
	Data    any    `json:"data"`
}

// NewRequest stamps a request with the local clock in whole seconds.
func NewRequest(kind, host string, data any) Request {
	return Request{
		Request: kind,
		Host:    host,
		Clock:   now().Unix(),
		NS:      0,
		Data:    data,
	}
}

func (r Request) Marshal() ([]byte, error) {
	return json.Marshal(r)
}

// String returns the json text of r, or "{}" when Data cannot be represented.
// Callers that must not send an empty object should use Marshal or IsEmptyObject.
func (r Request) String() string {
	b, err := r.Marshal()
	if err != nil {
		return emptyObject
	}
	return string(b)
}

// IsEmptyObject reports whether text is the serialization fallback.
func IsEmptyObject(text string) bool {
	return text == emptyObject
}
