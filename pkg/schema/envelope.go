package schema

// Envelope field names surrounding the connector-specific configuration
// subschema. Every canonical schema shares this fixed top level.
const (
	EnvelopeName          = "name"
	EnvelopeServiceType   = "serviceType"
	EnvelopeConnectionKey = "connectionConfiguration"
)

// Envelope wraps a connector's connection configuration schema in the
// canonical top-level object. The serviceType property carries the connector
// identifier as a constant so validation pins submissions to the selected
// connector.
func Envelope(serviceType string, connection Schema) Schema {
	return Schema{
		Type:     "object",
		Required: []string{EnvelopeName, EnvelopeServiceType, EnvelopeConnectionKey},
		Properties: map[string]Schema{
			EnvelopeName: {
				Type:  "string",
				Title: "Name",
			},
			EnvelopeServiceType: {
				Type:  "string",
				Const: serviceType,
			},
			EnvelopeConnectionKey: connection,
		},
		PropertyOrder: []string{EnvelopeName, EnvelopeServiceType, EnvelopeConnectionKey},
	}
}

// IsEnvelopeField reports whether the top-level property name belongs to the
// envelope rather than the connector configuration.
func IsEnvelopeField(name string) bool {
	switch name {
	case EnvelopeName, EnvelopeServiceType:
		return true
	default:
		return false
	}
}
