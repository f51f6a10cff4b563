package domain

// AsyncAPIVersion is written as the asyncapi key of every compiled document.
const AsyncAPIVersion = "2.6.0"

// Top-level section keys of a compiled document.
const (
	SectionAsyncAPI   = "asyncapi"
	SectionInfo       = "info"
	SectionServers    = "servers"
	SectionChannels   = "channels"
	SectionComponents = "components"
	SectionMessages   = "messages"
)

// Fallback keys used when a block leaves its name empty.
const (
	DefaultServerKey  = "myServer"
	DefaultChannelKey = "myChannel"
	DefaultMessageKey = "myMessage"
)

// Document is the compiled nested mapping produced from a block sequence.
// Values are strings or nested Documents.
type Document map[string]any

// Section returns the nested mapping stored under key, or nil.
func (d Document) Section(key string) Document {
	sub, _ := d[key].(Document)
	return sub
}

// String returns the string stored under key, or "".
func (d Document) String(key string) string {
	s, _ := d[key].(string)
	return s
}
