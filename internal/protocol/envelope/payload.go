package envelope

import "encoding/json"

// Metric is one value pushed with a history data request.
type Metric struct {
	Host  string `json:"host"`
	Key   string `json:"key"`
	Value string `json:"value"`
	Clock int64  `json:"clock"`
}

func NewMetric(host, key, value string) Metric {
	return Metric{
		Host:  host,
		Key:   key,
		Value: value,
		Clock: now().Unix(),
	}
}

// Defaults applied to auto-registration records.
const (
	DefaultHostMetadata = "DBMP"
	DefaultAgentIP      = "127.0.0.1"
	DefaultAgentPort    = 10050
)

// RegistrationHost is one host announced with an auto registration request.
type RegistrationHost struct {
	Host         string `json:"host"`
	HostMetadata string `json:"host_metadata"`
	IP           string `json:"ip"`
	Port         uint16 `json:"port"`
	Clock        int64  `json:"clock"`
}

func NewRegistrationHost(host string) RegistrationHost {
	return RegistrationHost{
		Host:         host,
		HostMetadata: DefaultHostMetadata,
		IP:           DefaultAgentIP,
		Port:         DefaultAgentPort,
		Clock:        now().Unix(),
	}
}

func (h RegistrationHost) WithMetadata(metadata string) RegistrationHost {
	h.HostMetadata = metadata
	return h
}

func (h RegistrationHost) WithAddress(ip string, port uint16) RegistrationHost {
	h.IP = ip
	h.Port = port
	return h
}

// Discovery is a low-level discovery value list, one macro per entry.
type Discovery struct {
	Data []map[string]string `json:"data"`
}

// NewDiscovery builds {"data":[{macro: v}, ...]} for each value in order.
func NewDiscovery(macro string, values []string) Discovery {
	data := make([]map[string]string, 0, len(values))
	for _, v := range values {
		data = append(data, map[string]string{macro: v})
	}
	return Discovery{Data: data}
}

// String renders d as the json text sent as a discovery item value.
func (d Discovery) String() string {
	b, err := json.Marshal(d)
	if err != nil {
		return "[]"
	}
	return string(b)
}
