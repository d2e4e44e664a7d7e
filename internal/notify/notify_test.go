package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordSender struct {
	got []string
	err error
}

func (r *recordSender) Send(ctx context.Context, text string) error {
	r.got = append(r.got, text)
	return r.err
}

func TestFanoutReachesEverySender(t *testing.T) {
	primary := &recordSender{}
	broken := &recordSender{err: errors.New("no display")}
	mirror := &recordSender{}

	f := NewFanout(primary, nil, broken, mirror)
	require.NoError(t, f.Send(context.Background(), "hello"))

	for _, s := range []*recordSender{primary, broken, mirror} {
		assert.Equal(t, []string{"hello"}, s.got)
	}
}

func TestFanoutReturnsPrimaryError(t *testing.T) {
	boom := errors.New("telegram down")
	mirror := &recordSender{}
	f := NewFanout(&recordSender{err: boom}, nil, mirror)

	err := f.Send(context.Background(), "x")
	assert.ErrorIs(t, err, boom)
	assert.Len(t, mirror.got, 1, "mirror skipped after primary failure")
}

func TestDesktopUsesTitle(t *testing.T) {
	var title, msg string
	d := &Desktop{Title: "slotlog", notify: func(t, m string) error {
		title, msg = t, m
		return nil
	}}
	require.NoError(t, d.Send(context.Background(), "What are you doing?"))
	assert.Equal(t, "slotlog", title)
	assert.Equal(t, "What are you doing?", msg)
}
