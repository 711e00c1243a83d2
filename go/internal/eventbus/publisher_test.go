package eventbus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestJetStreamPublisher_StreamConfig(t *testing.T) {
	p := &JetStreamPublisher{config: DefaultJetStreamConfig()}

	sc := p.streamConfig()
	assert.Equal(t, "PETITBAC_EVENTS", sc.Name)
	assert.Equal(t, []string{"petitbac.events.>"}, sc.Subjects)
	assert.Equal(t, 24*time.Hour, sc.MaxAge)
	assert.Equal(t, 2*time.Minute, sc.Duplicates)
}

func TestIsStreamConfigEqual(t *testing.T) {
	p := &JetStreamPublisher{config: DefaultJetStreamConfig()}
	base := p.streamConfig()

	same := p.streamConfig()
	same.Description = "ignored"
	assert.True(t, isStreamConfigEqual(base, same))

	moved := p.streamConfig()
	moved.Subjects = []string{"other.events.>"}
	assert.False(t, isStreamConfigEqual(base, moved))

	shorter := p.streamConfig()
	shorter.MaxAge = time.Hour
	assert.False(t, isStreamConfigEqual(base, shorter))
}
