package agentkit

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchema_JSONSchema(t *testing.T) {
	t.Parallel()
	type args struct {
		City  string   `json:"city" description:"City name"`
		Unit  Unit     `json:"unit" default:"Celsius"`
		Days  []int    `json:"days"`
		Extra *address `json:"extra"`
	}
	s, err := (&walker{}).parameters(reflect.TypeFor[args]())
	require.NoError(t, err)
	js := s.JSONSchema()
	assert.Equal(t, "object", js.Type)
	assert.Equal(t, []string{"city", "days"}, js.Required)
	assert.Equal(t, "string", js.Properties["unit"].Type)
	assert.Equal(t, []any{"Celsius", "Fahrenheit"}, js.Properties["unit"].Enum)
	assert.JSONEq(t, `"Celsius"`, string(js.Properties["unit"].Default))
	assert.Equal(t, "array", js.Properties["days"].Type)
	assert.Equal(t, "integer", js.Properties["days"].Items.Type)
	assert.Equal(t, "object", js.Properties["extra"].Type)
}

func TestSchema_Map(t *testing.T) {
	t.Parallel()
	type args struct {
		Meta map[string]string `json:"meta"`
	}
	s, err := (&walker{}).parameters(reflect.TypeFor[args]())
	require.NoError(t, err)
	m := s.Map()
	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"type":"object",
		"required":["meta"],
		"properties":{"meta":{"type":"object","description":"Parameter meta","properties":{}}}
	}`, string(data))
}

func TestSchema_Clone(t *testing.T) {
	t.Parallel()
	s, err := Derive(reflect.TypeFor[address](), "addr")
	require.NoError(t, err)
	c := s.Clone()
	assert.Equal(t, s, c)
	c.Properties["street"].Description = "changed"
	c.Required[0] = "other"
	assert.Equal(t, "Property street", s.Properties["street"].Description)
	assert.Equal(t, "street", s.Required[0])
	assert.Nil(t, (*Schema)(nil).Clone())
}

type accountID [4]byte

func TestRegisterType(t *testing.T) {
	t.Parallel()
	RegisterType(accountID{}, KindString, "account-id")
	RegisterType(uuid.UUID{}, KindString, "uuid")

	type args struct {
		Account accountID  `json:"account"`
		Request uuid.UUID  `json:"request"`
		Parent  *uuid.UUID `json:"parent"`
	}
	s, err := (&walker{}).parameters(reflect.TypeFor[args]())
	require.NoError(t, err)
	assert.Equal(t, KindString, s.Properties["account"].Kind)
	assert.Equal(t, "account-id", s.Properties["account"].Format)
	assert.Equal(t, "uuid", s.Properties["request"].Format)
	assert.Equal(t, "uuid", s.Properties["parent"].Format)
	assert.Equal(t, []string{"account", "request"}, s.Required)

	id := uuid.New()
	v, err := bind(reflect.TypeFor[args](), json.RawMessage(`{"account":[1,2,3,4],"request":"`+id.String()+`"}`), Injection{})
	require.NoError(t, err)
	got := v.Interface().(args)
	assert.Equal(t, id, got.Request)
	assert.Equal(t, accountID{1, 2, 3, 4}, got.Account)
}

func TestRegisterType_Panics(t *testing.T) {
	t.Parallel()
	assert.Panics(t, func() { RegisterType(nil, KindString, "") })
	assert.Panics(t, func() { RegisterType(accountID{}, KindObject, "") })
}
