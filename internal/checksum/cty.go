package checksum

import (
	"fmt"
	"sort"

	"github.com/zclconf/go-cty/cty"
)

// CtyValue appends a canonical encoding of a cty value to the digest.
// Object and map keys are visited in sorted order so the encoding does not
// depend on iteration order; every element is written as a type marker
// followed by its payload.
func (d *Digest) CtyValue(val cty.Value) error {
	if val.IsNull() || !val.IsKnown() {
		d.WriteString("null")
		return nil
	}

	ty := val.Type()
	switch {
	case ty == cty.String:
		d.WriteString("s")
		d.WriteString(val.AsString())
	case ty == cty.Number:
		d.WriteString("n")
		d.WriteString(val.AsBigFloat().Text('g', -1))
	case ty == cty.Bool:
		d.WriteString("b")
		d.WriteString(fmt.Sprintf("%t", val.True()))
	case ty.IsObjectType() || ty.IsMapType():
		d.WriteString("m")
		elems := val.AsValueMap()
		keys := make([]string, 0, len(elems))
		for k := range elems {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		d.writeCount(len(keys))
		for _, k := range keys {
			d.WriteString(k)
			if err := d.CtyValue(elems[k]); err != nil {
				return err
			}
		}
	case ty.IsTupleType() || ty.IsListType() || ty.IsSetType():
		d.WriteString("l")
		for it := val.ElementIterator(); it.Next(); {
			_, v := it.Element()
			if err := d.CtyValue(v); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("cannot hash cty value of type %s", ty.FriendlyName())
	}

	return nil
}
