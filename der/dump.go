package der

import (
	"encoding/asn1"
	"encoding/hex"
	"fmt"
	"io"
	"math/big"
	"strings"
	"time"

	"github.com/zkattest/zkattest/der/oids"
)

func parseValues(data []byte) ([]asn1.RawValue, error) {
	var values []asn1.RawValue
	for len(data) > 0 {
		var v asn1.RawValue
		rest, err := asn1.Unmarshal(data, &v)
		if err != nil {
			return values, err
		}
		values = append(values, v)
		data = rest
	}
	return values, nil
}

func tagName(tag int, class int) string {
	// Context-specific, application, or private tags
	switch class {
	case 2: // Context-specific
		return fmt.Sprintf("[%d]", tag)
	case 1: // Application
		return fmt.Sprintf("[APPLICATION %d]", tag)
	case 3: // Private
		return fmt.Sprintf("[PRIVATE %d]", tag)
	}

	// Universal tags
	switch tag {
	case asn1.TagBoolean:
		return "BOOLEAN"
	case asn1.TagInteger:
		return "INTEGER"
	case asn1.TagBitString:
		return "BIT STRING"
	case asn1.TagOctetString:
		return "OCTET STRING"
	case asn1.TagNull:
		return "NULL"
	case asn1.TagOID:
		return "OBJECT IDENTIFIER"
	case asn1.TagEnum:
		return "ENUMERATED"
	case asn1.TagUTF8String:
		return "UTF8String"
	case asn1.TagSequence:
		return "SEQUENCE"
	case asn1.TagSet:
		return "SET"
	case asn1.TagNumericString:
		return "NumericString"
	case asn1.TagPrintableString:
		return "PrintableString"
	case asn1.TagIA5String:
		return "IA5String"
	case asn1.TagUTCTime:
		return "UTCTime"
	case asn1.TagGeneralizedTime:
		return "GeneralizedTime"
	default:
		return fmt.Sprintf("[UNIVERSAL %d]", tag)
	}
}

func formatContent(v asn1.RawValue) string {
	// For compound structures, show element count
	if v.IsCompound {
		children, _ := parseValues(v.Bytes)
		return fmt.Sprintf("(%d elem)", len(children))
	}

	switch v.Tag {
	case asn1.TagBoolean:
		var b bool
		asn1.Unmarshal(v.FullBytes, &b)
		return fmt.Sprintf("%v", b)

	case asn1.TagInteger:
		if len(v.Bytes) == 0 {
			return "0"
		}
		num := new(big.Int).SetBytes(v.Bytes)
		if len(v.Bytes) <= 8 {
			return num.String()
		}
		bits := len(v.Bytes) * 8
		preview := hex.EncodeToString(v.Bytes[:min(8, len(v.Bytes))])
		return fmt.Sprintf("(%d bit) %s…", bits, preview)

	case asn1.TagBitString:
		var bs asn1.BitString
		if _, err := asn1.Unmarshal(v.FullBytes, &bs); err == nil {
			preview := hex.EncodeToString(bs.Bytes[:min(8, len(bs.Bytes))])
			if len(bs.Bytes) > 8 {
				preview += "…"
			}
			return fmt.Sprintf("(%d bit) %s", bs.BitLength, preview)
		}
		return "(invalid bit string)"

	case asn1.TagOctetString:
		if len(v.Bytes) == 0 {
			return "(0 byte)"
		}
		preview := strings.ToUpper(hex.EncodeToString(v.Bytes[:min(16, len(v.Bytes))]))
		if len(v.Bytes) > 16 {
			preview += "…"
		}
		return fmt.Sprintf("(%d byte) %s", len(v.Bytes), preview)

	case asn1.TagNull:
		return ""

	case asn1.TagOID:
		var oid asn1.ObjectIdentifier
		if _, err := asn1.Unmarshal(v.FullBytes, &oid); err == nil {
			oidStr := oid.String()
			if name := oids.DefaultRegistry.LookupDescription(oidStr); name != "" {
				return fmt.Sprintf("%s %s", oidStr, name)
			}
			return oidStr
		}
		return "(invalid OID)"

	case asn1.TagPrintableString, asn1.TagIA5String, asn1.TagUTF8String,
		asn1.TagNumericString:
		s := string(v.Bytes)
		if len(s) > 64 {
			s = s[:64] + "…"
		}
		return s

	case asn1.TagUTCTime, asn1.TagGeneralizedTime:
		var t time.Time
		if _, err := asn1.Unmarshal(v.FullBytes, &t); err == nil {
			return t.Format("2006-01-02 15:04:05 MST")
		}
		return string(v.Bytes)

	default:
		if v.Class == 2 { // Context-specific
			children, _ := parseValues(v.Bytes)
			return fmt.Sprintf("(%d elem)", len(children))
		}
		if len(v.Bytes) <= 32 {
			return strings.ToUpper(hex.EncodeToString(v.Bytes))
		}
		return fmt.Sprintf("(%d bytes)", len(v.Bytes))
	}
}

func dumpTree(w io.Writer, v asn1.RawValue, indent string, isLast bool) {
	prefix := indent
	if indent != "" {
		if isLast {
			prefix += "└─ "
		} else {
			prefix += "├─ "
		}
	} else {
		prefix = "* "
	}

	name := tagName(v.Tag, v.Class)
	content := formatContent(v)

	if content != "" {
		fmt.Fprintf(w, "%s%s %s\n", prefix, name, content)
	} else {
		fmt.Fprintf(w, "%s%s\n", prefix, name)
	}

	// Recurse into compound structures
	if v.IsCompound || v.Tag == asn1.TagSequence || v.Tag == asn1.TagSet || v.Class == 2 {
		children, err := parseValues(v.Bytes)
		if err != nil || len(children) == 0 {
			return
		}

		newIndent := indent
		if indent != "" {
			if isLast {
				newIndent += "   "
			} else {
				newIndent += "│  "
			}
		}

		for i, child := range children {
			dumpTree(w, child, newIndent, i == len(children)-1)
		}
	}
}

// Dump parses DER-encoded data and writes an indented tree rendering to w.
// Intended for operator inspection of certificates and envelopes.
func Dump(w io.Writer, data []byte) error {
	values, err := parseValues(data)
	if err != nil {
		return fmt.Errorf("failed to parse ASN.1: %w", err)
	}

	for i, v := range values {
		dumpTree(w, v, "", i == len(values)-1)
	}
	return nil
}
