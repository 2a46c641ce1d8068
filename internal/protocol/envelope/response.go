package envelope

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/danmuck/zbxctl/internal/protocol"
)

const responseSuccess = "success"

// infoPattern matches the acknowledgement summary, for example
// "processed: 6; failed: 0; total: 6; seconds spent: 0.000172".
var infoPattern = regexp.MustCompile(
	`processed: (?P<processed>\d+); failed: (?P<failed>\d+); total: (?P<total>\d+); seconds spent: (?P<seconds_spent>\d+(?:\.\d+)?)`,
)

// InfoStatus tells apart a missing summary from one that did not match.
type InfoStatus int

const (
	InfoAbsent InfoStatus = iota
	InfoMalformed
	InfoParsed
)

func (s InfoStatus) String() string {
	switch s {
	case InfoAbsent:
		return "absent"
	case InfoMalformed:
		return "malformed"
	case InfoParsed:
		return "parsed"
	default:
		return fmt.Sprintf("InfoStatus(%d)", int(s))
	}
}

// InfoCounters are the values extracted from Response.Info. A field that could not be
// read holds -1 (or -1.0 for SecondsSpent).
type InfoCounters struct {
	Processed    int32
	Failed       int32
	Total        int32
	SecondsSpent float32
}

// OKPolicy selects how strictly a push acknowledgement is judged.
type OKPolicy string

const (
	// OKLenient: failed == 0 and processed == total. An empty push counts as ok.
	OKLenient OKPolicy = "lenient"
	// OKStrict: OKLenient and total > 0.
	OKStrict OKPolicy = "strict"
)

func ParseOKPolicy(raw string) (OKPolicy, error) {
	switch OKPolicy(strings.ToLower(strings.TrimSpace(raw))) {
	case OKLenient:
		return OKLenient, nil
	case OKStrict, "":
		return OKStrict, nil
	default:
		return "", fmt.Errorf("envelope: unknown ok policy %q", raw)
	}
}

// Response is the generic server acknowledgement.
type Response struct {
	Response string  `json:"response"`
	Info     *string `json:"info,omitempty"`
}

// DecodeResponse parses b as an acknowledgement. A body without a "response" string is
// rejected.
func DecodeResponse(b []byte) (Response, error) {
	var raw struct {
		Response *string `json:"response"`
		Info     *string `json:"info"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return Response{}, &protocol.DecodeError{What: "response", Err: err}
	}
	if raw.Response == nil {
		return Response{}, &protocol.DecodeError{What: "response", Err: protocol.ErrMissingResponse}
	}
	return Response{Response: *raw.Response, Info: raw.Info}, nil
}

func (r Response) Success() bool {
	return r.Response == responseSuccess
}

func (r Response) Processed() int32 {
	return r.intField("processed")
}

func (r Response) Failed() int32 {
	return r.intField("failed")
}

func (r Response) Total() int32 {
	return r.intField("total")
}

func (r Response) SecondsSpent() float32 {
	raw, ok := r.infoField("seconds_spent")
	if !ok {
		return -1.0
	}
	v, err := strconv.ParseFloat(raw, 32)
	if err != nil {
		return -1.0
	}
	return float32(v)
}

// Counters extracts every summary field at once together with the parse status.
func (r Response) Counters() (InfoCounters, InfoStatus) {
	c := InfoCounters{
		Processed:    r.Processed(),
		Failed:       r.Failed(),
		Total:        r.Total(),
		SecondsSpent: r.SecondsSpent(),
	}
	switch {
	case r.Info == nil:
		return c, InfoAbsent
	case c.Processed < 0 || c.Failed < 0 || c.Total < 0 || c.SecondsSpent < 0:
		return c, InfoMalformed
	default:
		return c, InfoParsed
	}
}

// OK reports whether every pushed value was accepted under policy.
func (r Response) OK(policy OKPolicy) bool {
	total := r.Total()
	ok := r.Failed() == 0 && r.Processed() == total
	if policy == OKLenient {
		return ok
	}
	return ok && total > 0
}

func (r Response) intField(name string) int32 {
	raw, ok := r.infoField(name)
	if !ok {
		return -1
	}
	v, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return -1
	}
	return int32(v)
}

func (r Response) infoField(name string) (string, bool) {
	if r.Info == nil {
		return "", false
	}
	m := infoPattern.FindStringSubmatch(*r.Info)
	if m == nil {
		return "", false
	}
	return m[infoPattern.SubexpIndex(name)], true
}
