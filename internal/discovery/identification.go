package discovery

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

var (
	manufacturerTags = map[string]struct{}{"manufacturer": {}, "make": {}, "vendor": {}}
	modelTags        = map[string]struct{}{"model": {}, "modelname": {}, "product": {}, "makeandmodel": {}}
)

// extractDeviceInfo walks an XML document and returns the first non-empty
// manufacturer and model values, matching element local names without regard
// to namespace or case.
func extractDeviceInfo(data []byte) (manufacturer, model string) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false
	dec.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) { return input, nil }

	var current string
	for {
		tok, err := dec.Token()
		if err != nil {
			return manufacturer, model
		}
		switch t := tok.(type) {
		case xml.StartElement:
			current = strings.ToLower(t.Name.Local)
		case xml.EndElement:
			current = ""
		case xml.CharData:
			value := strings.TrimSpace(string(t))
			if value == "" || current == "" {
				continue
			}
			if _, ok := manufacturerTags[current]; ok && manufacturer == "" {
				manufacturer = value
			}
			if _, ok := modelTags[current]; ok && model == "" {
				model = value
			}
		}
		if manufacturer != "" && model != "" {
			return manufacturer, model
		}
	}
}

// composeESCLName degrades from "<mfr> <model>" to "eSCL Scanner", always
// suffixed with the address.
func composeESCLName(manufacturer, model, addr string) string {
	var name string
	switch {
	case manufacturer != "" && model != "":
		if strings.HasPrefix(strings.ToLower(model), strings.ToLower(manufacturer)) {
			name = model
		} else {
			name = manufacturer + " " + model
		}
	case model != "":
		name = model
	case manufacturer != "":
		name = manufacturer + " Scanner"
	default:
		name = "eSCL Scanner"
	}
	return fmt.Sprintf("%s (%s)", name, addr)
}
