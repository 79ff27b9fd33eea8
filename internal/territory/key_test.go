package territory

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shelfwatch/shelfwatch/internal/model"
)

func TestKeyIgnoresCaseAndWhitespace(t *testing.T) {
	a := Key("acme", model.RawLocation{Name: "Main St Market", City: "Austin", State: "TX", Zip: "78701"})
	b := Key("acme", model.RawLocation{Name: "MAIN  ST  MARKET", City: " austin ", State: "tx", Zip: "78701"})
	assert.Equal(t, a, b)
}

func TestKeyIgnoresVolatileFields(t *testing.T) {
	lat1, lng1 := 30.2672, -97.7431
	lat2, lng2 := 30.2680, -97.7440

	a := Key("acme", model.RawLocation{
		Name: "Main St Market", Address: "600 Congress Ave",
		City: "Austin", State: "TX", Zip: "78701",
		Latitude: &lat1, Longitude: &lng1, Phone: "512-555-0100",
	})
	b := Key("acme", model.RawLocation{
		Name: "Main St Market", Address: "600 Congress Avenue Suite 1",
		City: "Austin", State: "TX", Zip: "78701",
		Latitude: &lat2, Longitude: &lng2, Phone: "512-555-0199",
	})
	assert.Equal(t, a, b)
}

func TestKeyDistinguishes(t *testing.T) {
	base := model.RawLocation{Name: "Main St Market", City: "Austin", State: "TX", Zip: "78701"}

	othercity := base
	othercity.City = "Dallas"
	assert.NotEqual(t, Key("acme", base), Key("acme", othercity))

	// Same store, different brand: separate territory rows.
	assert.NotEqual(t, Key("acme", base), Key("globex", base))
}

func TestKeyIsHexSHA256(t *testing.T) {
	k := Key("acme", model.RawLocation{Name: "X"})
	assert.Len(t, k, 64)
	assert.Regexp(t, "^[0-9a-f]+$", k)
}
