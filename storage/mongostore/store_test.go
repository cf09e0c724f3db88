package mongostore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func Test_toDocument(t *testing.T) {
	now := time.Date(2023, 3, 6, 8, 0, 0, 0, time.UTC)
	oid := primitive.NewObjectID()

	doc := toDocument(bson.M{
		"_id":        "s1",
		"name":       "Alice",
		"attendance": bson.A{int32(0), int32(1), int32(0), int32(0)},
		"finalAttendance": bson.D{
			{Key: "June 1", Value: bson.A{int64(1), int32(0), int32(0), int32(0), "June 1"}},
		},
		"nested":    bson.M{"at": primitive.NewDateTimeFromTime(now)},
		"hash":      primitive.Binary{Data: []byte("x")},
		"reference": oid,
	})

	assert.Equal(t, "s1", doc.ID)
	assert.NotContains(t, doc.Data, "_id")
	assert.Equal(t, "Alice", doc.Data["name"])
	assert.Equal(t, []interface{}{int32(0), int32(1), int32(0), int32(0)}, doc.Data["attendance"])
	assert.Equal(t, map[string]interface{}{
		"June 1": []interface{}{int64(1), int32(0), int32(0), int32(0), "June 1"},
	}, doc.Data["finalAttendance"])
	assert.Equal(t, map[string]interface{}{"at": now}, doc.Data["nested"])
	assert.Equal(t, []byte("x"), doc.Data["hash"])
	assert.Equal(t, oid.Hex(), doc.Data["reference"])
}
