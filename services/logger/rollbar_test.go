package logsvc

import (
	"bytes"
	"errors"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/classrecord/core"
	"github.com/trezcool/classrecord/core/teacher"
)

func newTestLogger(buf *bytes.Buffer) *RollbarLogger {
	l := NewRollbarLogger(log.New(buf, "", 0), core.NewTestConfig())
	l.Enable(false)
	return l
}

func TestRollbarLogger_prepare(t *testing.T) {
	l := newTestLogger(new(bytes.Buffer))
	err := errors.New("boom")
	extras := map[string]interface{}{"class": "CS101"}
	tchr := teacher.Teacher{ID: "t1", EmployeeID: "ada@school.edu", FirstName: "Ada"}

	got := l.prepare("msg", []interface{}{err, tchr, extras, &tchr})
	assert.Equal(t, []interface{}{"msg", err, extras}, got)
}

func TestRollbarLogger_print(t *testing.T) {
	buf := new(bytes.Buffer)
	l := newTestLogger(buf)

	l.Warn("updating student", errors.New("boom"), teacher.Teacher{ID: "t1"})
	assert.Equal(t, "updating student\nboom\n", buf.String())
}
