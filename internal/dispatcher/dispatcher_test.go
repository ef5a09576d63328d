package dispatcher

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/adfiller/internal/ad"
	"github.com/JakeFAU/adfiller/internal/render"
	"github.com/JakeFAU/adfiller/internal/retry"
	"github.com/JakeFAU/adfiller/internal/router"
)

type call struct {
	kind, dest, photo, text string
}

// fakeSender fails every send to a destination listed in broken and fails the
// first flaky[dest] sends to others.
type fakeSender struct {
	mu     sync.Mutex
	broken map[string]bool
	flaky  map[string]int
	calls  []call
}

func (f *fakeSender) record(c call) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
	if f.broken[c.dest] {
		return errors.New("chat not found")
	}
	if f.flaky[c.dest] > 0 {
		f.flaky[c.dest]--
		return errors.New("timeout")
	}
	return nil
}

func (f *fakeSender) SendText(_ context.Context, dest, msg string) error {
	return f.record(call{kind: "text", dest: dest, text: msg})
}

func (f *fakeSender) SendPhoto(_ context.Context, dest, url, caption string) error {
	return f.record(call{kind: "photo", dest: dest, photo: url, text: caption})
}

func (f *fakeSender) attemptsTo(dest string) int {
	n := 0
	for _, c := range f.calls {
		if c.dest == dest {
			n++
		}
	}
	return n
}

func newDispatcher(t *testing.T, sender ad.Sender) *Dispatcher {
	t.Helper()
	cats, err := router.New(router.DefaultCategories())
	require.NoError(t, err)
	d, err := New(cats, render.New(0, 0), sender, retry.Fixed{MaxAttempts: 10}, nil)
	require.NoError(t, err)
	return d
}

var receivers = []ad.Receiver{
	{ID: "@broken", Category: "transporte"},
	{ID: "100", Category: "transporte"},
	{ID: "200", Category: "casas"},
	{ID: "300", Category: "todos"},
}

func car() ad.Ad {
	return ad.Ad{ID: 1, Title: "Vendo Lada", Description: "Lada 2107 en buen estado", SubcategoryID: 121}
}

func TestDispatchContinuesPastPermanentFailure(t *testing.T) {
	t.Parallel()
	sender := &fakeSender{broken: map[string]bool{"@broken": true}}
	d := newDispatcher(t, sender)

	report := d.Dispatch(context.Background(), car(), receivers)

	require.Len(t, report.Failed, 1)
	assert.Equal(t, "@broken", report.Failed[0].Receiver.ID)
	assert.ErrorIs(t, report.Failed[0].Err, ErrExhausted)
	assert.Equal(t, 10, sender.attemptsTo("@broken"))

	assert.Equal(t, []ad.Receiver{receivers[1], receivers[3]}, report.Delivered)
	assert.Zero(t, sender.attemptsTo("200"))
	assert.Equal(t, []string{"transporte", "todos"}, report.Categories)
}

func TestDispatchRetriesTransientFailure(t *testing.T) {
	t.Parallel()
	sender := &fakeSender{flaky: map[string]int{"100": 3}}
	d := newDispatcher(t, sender)

	report := d.Dispatch(context.Background(), car(), receivers[1:2])
	assert.Empty(t, report.Failed)
	assert.Equal(t, []ad.Receiver{receivers[1]}, report.Delivered)
	assert.Equal(t, 4, sender.attemptsTo("100"))
}

func TestDispatchSendsPhotoWhenImagesExist(t *testing.T) {
	t.Parallel()
	sender := &fakeSender{}
	d := newDispatcher(t, sender)

	a := car()
	a.ImagesCount = 2
	a.Images = []ad.Image{{Thumb: "https://pic.example/t.jpg"}}
	d.Dispatch(context.Background(), a, receivers[1:2])

	require.Len(t, sender.calls, 1)
	assert.Equal(t, "photo", sender.calls[0].kind)
	assert.Equal(t, "https://pic.example/t.jpg", sender.calls[0].photo)
	assert.Contains(t, sender.calls[0].text, "<b>Vendo Lada</b>")

	sender.calls = nil
	d.Dispatch(context.Background(), car(), receivers[1:2])
	require.Len(t, sender.calls, 1)
	assert.Equal(t, "text", sender.calls[0].kind)
}

func TestDispatchLongAdWithPhotoUsesCaptionLimit(t *testing.T) {
	t.Parallel()
	sender := &fakeSender{}
	d := newDispatcher(t, sender)

	a := car()
	a.Description = strings.Repeat("Lada 2107 en buen estado. ", 120)
	a.ImagesCount = 1
	a.Images = []ad.Image{{Thumb: "https://pic.example/t.jpg"}}
	report := d.Dispatch(context.Background(), a, receivers[1:2])

	require.Len(t, report.Delivered, 1)
	require.Len(t, sender.calls, 1)
	assert.Equal(t, "photo", sender.calls[0].kind)
	assert.LessOrEqual(t, utf8.RuneCountInString(sender.calls[0].text), render.DefaultCaptionLimit)
	assert.Contains(t, sender.calls[0].text, "<b>Vendo Lada</b>")
}

func TestDispatchDeliversOncePerReceiver(t *testing.T) {
	t.Parallel()
	sender := &fakeSender{}
	d := newDispatcher(t, sender)

	dup := []ad.Receiver{{ID: "100", Category: "transporte"}, {ID: "100", Category: "todos"}}
	report := d.Dispatch(context.Background(), car(), dup)
	assert.Len(t, report.Delivered, 1)
	assert.Equal(t, 1, sender.attemptsTo("100"))
}

func TestDispatchNoMatchingReceivers(t *testing.T) {
	t.Parallel()
	sender := &fakeSender{}
	d := newDispatcher(t, sender)

	report := d.Dispatch(context.Background(), car(), []ad.Receiver{{ID: "200", Category: "casas"}})
	assert.Empty(t, report.Delivered)
	assert.Empty(t, report.Failed)
	assert.Empty(t, sender.calls)
}

func TestDispatchCanceledContext(t *testing.T) {
	t.Parallel()
	sender := &fakeSender{broken: map[string]bool{"100": true, "300": true}}
	cats, err := router.New(router.DefaultCategories())
	require.NoError(t, err)
	d, err := New(cats, render.New(0, 0), sender, retry.Fixed{MaxAttempts: 10, Pause: DefaultPause}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report := d.Dispatch(ctx, car(), receivers[1:])
	require.Len(t, report.Failed, 2)
	assert.ErrorIs(t, report.Failed[0].Err, context.Canceled)
	assert.Equal(t, 1, sender.attemptsTo("100"))
}

func TestNewRequiresCollaborators(t *testing.T) {
	t.Parallel()
	_, err := New(nil, render.New(0, 0), &fakeSender{}, nil, nil)
	require.Error(t, err)
}
