package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedOpener struct {
	errs  []error
	links []string
}

func (o *scriptedOpener) OpenLink(_ context.Context, _ string, link string) error {
	o.links = append(o.links, link)
	if len(o.errs) == 0 {
		return nil
	}
	err := o.errs[0]
	o.errs = o.errs[1:]
	return err
}

func TestSendWhatsAppDeepLink(t *testing.T) {
	opener := &scriptedOpener{}
	d := NewDispatcher(opener, nil, nil)

	err := d.Send(context.Background(), "install-1", ChannelWhatsApp, "+91 123-456-7890", "We missed you!")
	require.NoError(t, err)

	require.Len(t, opener.links, 1)
	assert.Equal(t, "whatsapp://send?phone=911234567890&text=We+missed+you%21", opener.links[0])
}

func TestSendWhatsAppFallsBackToWeb(t *testing.T) {
	opener := &scriptedOpener{errs: []error{ErrChannelUnavailable}}
	d := NewDispatcher(opener, nil, nil)

	err := d.Send(context.Background(), "install-1", ChannelWhatsApp, "+911234567890", "hello")
	require.NoError(t, err)

	require.Len(t, opener.links, 2)
	assert.Equal(t, "https://wa.me/911234567890?text=hello", opener.links[1])
}

func TestSendWhatsAppHardFailure(t *testing.T) {
	opener := &scriptedOpener{errs: []error{errors.New("agent offline")}}
	d := NewDispatcher(opener, nil, nil)

	err := d.Send(context.Background(), "install-1", ChannelWhatsApp, "+911234567890", "hello")
	assert.Error(t, err)
	assert.Len(t, opener.links, 1)
}

func TestSendSMS(t *testing.T) {
	opener := &scriptedOpener{}
	d := NewDispatcher(opener, nil, nil)

	err := d.Send(context.Background(), "install-1", ChannelSMS, "+911234567890", "hello there")
	require.NoError(t, err)

	require.Len(t, opener.links, 1)
	assert.Equal(t, "sms:+911234567890?body=hello+there", opener.links[0])
}

func TestSendSMSNoFallback(t *testing.T) {
	opener := &scriptedOpener{errs: []error{ErrChannelUnavailable}}
	d := NewDispatcher(opener, nil, nil)

	err := d.Send(context.Background(), "install-1", ChannelSMS, "+911234567890", "hello")
	assert.Error(t, err)
	// One attempt only; SMS has no web equivalent.
	assert.Len(t, opener.links, 1)
}

func TestSendUnsupportedChannel(t *testing.T) {
	d := NewDispatcher(&scriptedOpener{}, nil, nil)
	err := d.Send(context.Background(), "install-1", Channel("carrier-pigeon"), "+1555", "hello")
	assert.Error(t, err)
}
