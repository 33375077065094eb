package sqlutil

import (
	"database/sql"
	"encoding/json"
	"testing"

	"github.com/sqlc-dev/pqtype"
	"github.com/stretchr/testify/assert"
)

func TestToSqlString(t *testing.T) {
	assert.Equal(t, sql.NullString{}, ToSqlString(""))
	assert.Equal(t, sql.NullString{String: "turbo", Valid: true}, ToSqlString("turbo"))
	assert.Equal(t, "fallback", FromSqlString(sql.NullString{}, "fallback"))
	assert.Equal(t, "turbo", FromSqlString(ToSqlString("turbo"), "fallback"))
}

func TestNullRawMessage(t *testing.T) {
	assert.False(t, ToNullRawMessage(nil).Valid)
	assert.False(t, ToNullRawMessage(json.RawMessage("null")).Valid)

	v := ToNullRawMessage(json.RawMessage(`[{"rank":1}]`))
	assert.True(t, v.Valid)
	assert.JSONEq(t, `[{"rank":1}]`, string(FromNullRawMessage(v)))
	assert.Nil(t, FromNullRawMessage(pqtype.NullRawMessage{}))
}
