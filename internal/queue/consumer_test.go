package queue

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleMessage_AppendsLines(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, HandleMessage(dir, EnrollmentCreatedQueue,
		[]byte(`{"enrollment_id":"e1","user_id":"u1","course_id":"c1","course_title":"Go Basics","purchased":true,"amount_cents":4900,"created_at":"2025-01-02T03:04:05Z"}`)))
	require.NoError(t, HandleMessage(dir, InstructorActivatedQueue,
		[]byte(`{"user_id":"u2","email":"ada@example.com","payment_reference":"cs_1","amount_cents":150000,"activated_at":"2025-01-02T03:04:06Z"}`)))

	raw, err := os.ReadFile(filepath.Join(dir, "events.log"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "Enrollment created | enrollment_id=e1")
	assert.Contains(t, lines[0], `course="Go Basics" | kind=purchased | amount=4900 cents`)
	assert.Contains(t, lines[1], "Instructor activated | user_id=u2 | email=a**@example.com")
}

func TestHandleMessage_Poison(t *testing.T) {
	dir := t.TempDir()
	assert.Error(t, HandleMessage(dir, EnrollmentCreatedQueue, []byte(`{not json`)))
	assert.Error(t, HandleMessage(dir, "booking.confirmed", []byte(`{}`)))
	_, err := os.Stat(filepath.Join(dir, "events.log"))
	assert.True(t, os.IsNotExist(err))
}

func TestMaskEmail(t *testing.T) {
	assert.Equal(t, "a**@example.com", maskEmail("ada@example.com"))
	assert.Equal(t, "a@example.com", maskEmail("a@example.com"))
	assert.Equal(t, "nomail", maskEmail("nomail"))
}
