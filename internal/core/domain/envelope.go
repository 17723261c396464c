package domain

import "strings"

// MetadataField is one ordered key-value entry of the canonical
// envelope. Order matters: the envelope must be byte-stable for
// identical inputs because it is the verbatim summarization input.
type MetadataField struct {
	Key   string
	Value string
}

// Envelope wraps document metadata and body into the canonical
// tagged-section text structure fed to the summarizer:
//
//	<DOCUMENT>
//	<METADATA>
//	KEY: value
//	</METADATA>
//	<CONTENT>
//	FORMAT: markdown
//	TEXT_START
//	...body...
//	TEXT_END
//	</CONTENT>
//	</DOCUMENT>
func Envelope(metadata []MetadataField, body string) string {
	var b strings.Builder
	b.WriteString("<DOCUMENT>\n")

	b.WriteString("<METADATA>\n")
	for _, f := range metadata {
		b.WriteString(f.Key)
		b.WriteString(": ")
		b.WriteString(f.Value)
		b.WriteString("\n")
	}
	b.WriteString("</METADATA>\n")

	b.WriteString("<CONTENT>\n")
	b.WriteString("FORMAT: markdown\n")
	b.WriteString("TEXT_START\n")
	b.WriteString(body)
	if !strings.HasSuffix(body, "\n") {
		b.WriteString("\n")
	}
	b.WriteString("TEXT_END\n")
	b.WriteString("</CONTENT>\n")

	b.WriteString("</DOCUMENT>")
	return b.String()
}
