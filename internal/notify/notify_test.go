package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vk3336/VK7Days/internal/schedule"
)

func TestTag(t *testing.T) {
	assert.Equal(t, "vk7_alarm_t1", Tag("t1"))
}

func TestFor(t *testing.T) {
	task := schedule.Task{ID: "t1", Title: "Morning run", Time: "07:00", Enabled: true}

	n := For(task)

	assert.Equal(t, DefaultTitle, n.Title)
	assert.Equal(t, "Morning run (07:00)", n.Body)
	assert.Equal(t, "vk7_alarm_t1", n.Tag)
	assert.Equal(t, []Action{ActionStop, ActionOpen}, n.Actions)
}
