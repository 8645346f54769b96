package device

import (
	"fmt"
)

type prop struct {
	id    uint32
	value uint64
}

// objectProps maps the property names of one KMS object to ids and
// current values.
type objectProps map[string]prop

func readProps(card Card, objID, objType uint32) (objectProps, error) {
	obj, err := card.GetObjectProperties(objID, objType)
	if err != nil {
		return nil, err
	}
	props := make(objectProps, len(obj.Props))
	for i, id := range obj.Props {
		p, err := card.GetProperty(id)
		if err != nil {
			return nil, fmt.Errorf("object %d: %w", objID, err)
		}
		props[p.Name] = prop{id: id, value: obj.Values[i]}
	}
	return props, nil
}

// require returns the id of name or an error naming the missing property.
func (p objectProps) require(name string) (uint32, error) {
	v, ok := p[name]
	if !ok {
		return 0, fmt.Errorf("missing property %s", name)
	}
	return v.id, nil
}

// optional returns 0 when name is absent.
func (p objectProps) optional(name string) uint32 {
	return p[name].id
}
