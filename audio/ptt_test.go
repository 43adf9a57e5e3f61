package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// mockLine is a test double for gpioLine that records calls without
// requiring a real GPIO chip, the same role mockGPIODLine plays in the
// repo this is grounded on.
type mockLine struct {
	value  int
	closed bool
}

func (m *mockLine) SetValue(v int) error {
	m.value = v
	return nil
}

func (m *mockLine) Close() error {
	m.closed = true
	return nil
}

func TestPTT_Set_Activate(t *testing.T) {
	mock := &mockLine{}
	p := &PTT{line: mock, invert: false}

	assert.NoError(t, p.Set(true))
	assert.Equal(t, 1, mock.value)
}

func TestPTT_Set_Deactivate(t *testing.T) {
	mock := &mockLine{value: 1}
	p := &PTT{line: mock, invert: false}

	assert.NoError(t, p.Set(false))
	assert.Equal(t, 0, mock.value)
}

func TestPTT_Set_Inverted(t *testing.T) {
	mock := &mockLine{}
	p := &PTT{line: mock, invert: true}

	assert.NoError(t, p.Set(true))
	assert.Equal(t, 0, mock.value, "inverted PTT should drive low on activate")

	assert.NoError(t, p.Set(false))
	assert.Equal(t, 1, mock.value, "inverted PTT should drive high on deactivate")
}

func TestPTT_Close_Deasserts(t *testing.T) {
	mock := &mockLine{value: 1}
	p := &PTT{line: mock, invert: false}

	assert.NoError(t, p.Close())
	assert.Equal(t, 0, mock.value)
	assert.True(t, mock.closed)
}
