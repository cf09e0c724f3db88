package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/trezcool/classrecord/core"
	"github.com/trezcool/classrecord/core/attendance"
	"github.com/trezcool/classrecord/core/teacher"
)

type LogEntry struct {
	Level string
	Msg   string
	Args  []interface{}
}

// Logger records log entries for assertions.
type Logger struct {
	mu      sync.Mutex
	entries []LogEntry
}

var _ core.Logger = (*Logger)(nil) // interface compliance check

func (l *Logger) log(level, msg string, args []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, LogEntry{Level: level, Msg: msg, Args: args})
}

func (l *Logger) Debug(msg string, args ...interface{}) { l.log("debug", msg, args) }
func (l *Logger) Info(msg string, args ...interface{})  { l.log("info", msg, args) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.log("warning", msg, args) }
func (l *Logger) Error(msg string, args ...interface{}) { l.log("error", msg, args) }
func (l *Logger) Fatal(msg string, args ...interface{}) { l.log("critical", msg, args) }

// Entries returns the entries logged at level; every entry when level is empty.
func (l *Logger) Entries(level string) []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	var entries []LogEntry
	for _, e := range l.entries {
		if level == "" || e.Level == level {
			entries = append(entries, e)
		}
	}
	return entries
}

// MailService renders and keeps the messages it is asked to send.
type MailService struct {
	mu       sync.Mutex
	messages []*core.EmailMessage
}

var _ core.EmailService = (*MailService)(nil) // interface compliance check

func (m *MailService) SendMessages(messages ...*core.EmailMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range messages {
		if err := msg.Render(); err != nil {
			panic(fmt.Sprintf("rendering email %q: %v", msg.Subject, err))
		}
		m.messages = append(m.messages, msg)
	}
}

func (m *MailService) Messages() []*core.EmailMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*core.EmailMessage(nil), m.messages...)
}

func CreateTeacher(t *testing.T, repo teacher.Repository, email, pwd string, isActive bool) teacher.Teacher {
	now := time.Now().UTC()
	tchr := teacher.Teacher{
		EmployeeID: email,
		FirstName:  "Test",
		LastName:   "Teacher",
		IsActive:   isActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if pwd != "" {
		if err := tchr.SetPassword(pwd); err != nil {
			t.Fatalf("createTeacher() failed: %v", err)
		}
	}
	tchr, err := repo.CreateTeacher(context.Background(), tchr)
	if err != nil {
		t.Fatalf("createTeacher() failed: %v", err)
	}
	return tchr
}

func CreateClass(t *testing.T, repo attendance.Repository, code, email, period string) attendance.Class {
	cls, err := repo.CreateClass(context.Background(), attendance.Class{
		ClassCode:   code,
		SubjectName: "Subject " + code,
		EmployeeID:  email,
		Period:      period,
	})
	if err != nil {
		t.Fatalf("createClass() failed: %v", err)
	}
	return cls
}

func CreateStudent(t *testing.T, repo attendance.Repository, cls attendance.Class, name string, vec ...attendance.Vector) attendance.Student {
	st := attendance.Student{Name: name, Grade: "0"}
	if len(vec) > 0 {
		st.Attendance = vec[0]
	}
	st, err := repo.AddStudent(context.Background(), cls, st)
	if err != nil {
		t.Fatalf("createStudent() failed: %v", err)
	}
	return st
}
