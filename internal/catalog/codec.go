package catalog

import "encoding/json"

// Marshal encodes c as the stored document body.
func Marshal(c *Catalog) ([]byte, error) { return json.Marshal(c) }

// Unmarshal decodes a stored document body. A null or empty years map
// yields an empty catalog.
func Unmarshal(body []byte) (*Catalog, error) {
	c := New()
	if err := json.Unmarshal(body, c); err != nil {
		return nil, err
	}
	if c.Years == nil {
		c.Years = map[string]*Year{}
	}
	return c, nil
}
