package registry

import (
	"testing"

	"peersync/pkg/document"
	"peersync/pkg/log"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	conf := viper.New()
	conf.Set("resources", []map[string]interface{}{
		{
			"name": "person",
			"fields": []map[string]interface{}{
				{"name": "first_name", "type": "string", "required": true},
				{"name": "last_name", "type": "string"},
				{"name": "organisation", "type": "reference", "references": "organisation"},
			},
		},
		{
			"name": "organisation",
			"fields": []map[string]interface{}{
				{"name": "name", "type": "string", "required": true},
				{"name": "parent", "type": "reference", "references": "organisation"},
			},
		},
	})
	return NewRegistry(conf, &log.Logger{Logger: zap.NewNop()})
}

func TestRegistryLoad(t *testing.T) {
	reg := newTestRegistry(t)

	assert.Equal(t, []string{"person", "organisation"}, reg.List())
	assert.True(t, reg.Has("person"))
	assert.False(t, reg.Has("vehicle"))
}

func TestRegistryGetUnknown(t *testing.T) {
	reg := newTestRegistry(t)

	_, err := reg.Get("vehicle")
	assert.Error(t, err)
	var unknown *document.UnknownResourceError
	assert.ErrorAs(t, err, &unknown)
	assert.Equal(t, "vehicle", unknown.Resource)
}

func TestResourceValidate(t *testing.T) {
	reg := newTestRegistry(t)
	person, err := reg.Get("person")
	assert.NoError(t, err)

	errs := person.Validate(map[string]interface{}{"first_name": "Asha"}, nil)
	assert.Empty(t, errs)

	errs = person.Validate(map[string]interface{}{"last_name": "Okello"}, nil)
	assert.Len(t, errs, 1)
	assert.Equal(t, "first_name", errs[0].Field)

	// nil 值等同缺失
	errs = person.Validate(map[string]interface{}{"first_name": nil}, nil)
	assert.Len(t, errs, 1)
}

func TestReferenceTargets(t *testing.T) {
	reg := newTestRegistry(t)
	person, err := reg.Get("person")
	assert.NoError(t, err)

	targets := person.ReferenceTargets()
	assert.Equal(t, map[string]string{"organisation": "organisation"}, targets)
}
