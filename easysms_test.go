package easysms

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/easysms/pkg/config"
	"github.com/kart-io/easysms/pkg/errors"
	"github.com/kart-io/easysms/pkg/gateway"
	"github.com/kart-io/easysms/pkg/gateway/gatewaytest"
	"github.com/kart-io/easysms/pkg/journal"
	"github.com/kart-io/easysms/pkg/logger"
	"github.com/kart-io/easysms/pkg/message"
	"github.com/kart-io/easysms/pkg/messenger"
	"github.com/kart-io/easysms/pkg/phone"
	"github.com/kart-io/easysms/pkg/strategy"
)

func newEasySms(t *testing.T, opts []config.Option, options ...Option) *EasySms {
	t.Helper()
	o, err := config.New(opts...)
	require.NoError(t, err)
	sms, err := New(o, options...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sms.Close() })
	return sms
}

func creatorFor(gw gateway.Gateway) gateway.Creator {
	return func(*config.Config, logger.Logger) (gateway.Gateway, error) {
		return gw, nil
	}
}

func TestGateway_NoDefault(t *testing.T) {
	sms := newEasySms(t, nil)

	_, err := sms.Gateway("")
	require.Error(t, err)
	assert.True(t, errors.IsNoDefaultGateway(err))
}

func TestGateway_DefaultIsCached(t *testing.T) {
	sms := newEasySms(t, nil)
	sms.SetDefaultGateway("log")

	first, err := sms.Gateway("")
	require.NoError(t, err)
	second, err := sms.Gateway("")
	require.NoError(t, err)
	named, err := sms.Gateway("log")
	require.NoError(t, err)

	assert.Equal(t, "log", first.Name())
	assert.Same(t, first, second)
	assert.Same(t, first, named)
}

func TestGateway_DefaultFromOptions(t *testing.T) {
	sms := newEasySms(t, []config.Option{config.WithDefaultGateways("errorlog", "log")})

	assert.Equal(t, "errorlog", sms.DefaultGateway())
	gw, err := sms.Gateway("")
	require.NoError(t, err)
	assert.Equal(t, "errorlog", gw.Name())
}

func TestGateway_ConcurrentCreationIsOnce(t *testing.T) {
	sms := newEasySms(t, nil)

	var mu sync.Mutex
	created := 0
	sms.Extend("counted", func(cfg *config.Config, _ logger.Logger) (gateway.Gateway, error) {
		mu.Lock()
		created++
		mu.Unlock()
		return gatewaytest.NewMockGateway("counted", nil), nil
	})

	var wg sync.WaitGroup
	got := make([]gateway.Gateway, 16)
	for i := range got {
		wg.Add(1)
		go func() {
			defer wg.Done()
			gw, err := sms.Gateway("counted")
			assert.NoError(t, err)
			got[i] = gw
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	for _, gw := range got[1:] {
		assert.Same(t, got[0], gw)
	}
}

func TestGateway_Unknown(t *testing.T) {
	sms := newEasySms(t, nil)

	_, err := sms.Gateway("no-such-gateway")
	require.Error(t, err)
	assert.True(t, errors.IsInvalidArgument(err))
	assert.Contains(t, err.Error(), "no-such-gateway")
}

func TestGateway_TimeoutFromOptions(t *testing.T) {
	sms := newEasySms(t, []config.Option{
		config.WithTimeout(2 * time.Second),
		config.WithGateway("errorlog", map[string]any{"timeout": 1}),
	})

	gw, err := sms.Gateway("log")
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, gw.Timeout())

	gw, err = sms.Gateway("errorlog")
	require.NoError(t, err)
	assert.Equal(t, time.Second, gw.Timeout(), "section timeout wins")
}

func TestStrategy(t *testing.T) {
	sms := newEasySms(t, []config.Option{config.WithStrategy("random")})

	s, err := sms.Strategy("")
	require.NoError(t, err)
	assert.IsType(t, strategy.Random{}, s)

	_, err = sms.Strategy("no-such-strategy")
	require.Error(t, err)
	assert.True(t, errors.IsInvalidArgument(err))
	assert.Contains(t, err.Error(), "no-such-strategy")
}

func TestSend_PartialFailure(t *testing.T) {
	sms := newEasySms(t, nil)
	a := gatewaytest.Succeed("a", gateway.Result{"ok": 1})
	b := gatewaytest.Fail("b", 7, "bad sign")
	c := gatewaytest.Succeed("c", gateway.Result{"ok": 2})
	sms.Extend("a", creatorFor(a)).Extend("b", creatorFor(b)).Extend("c", creatorFor(c))

	results, err := sms.Send(context.Background(), phone.New("+8618888888888"), message.FromText("hi"), "a", "b", "c")
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c"}, results.Names())
	outcome, _ := results.Get("a")
	assert.Equal(t, gateway.Result{"ok": 1}, outcome.Result())
	outcome, _ = results.Get("b")
	require.NotNil(t, outcome.Err())
	assert.Equal(t, 7, outcome.Err().Code)
	assert.Equal(t, "bad sign", outcome.Err().Message)
	outcome, _ = results.Get("c")
	assert.Equal(t, gateway.Result{"ok": 2}, outcome.Result())
}

func TestSend_Candidates(t *testing.T) {
	tests := []struct {
		name     string
		allow    []string
		explicit []string
		want     []string
	}{
		{name: "defaults", want: []string{"x", "y"}},
		{name: "message allow-list", allow: []string{"z", "x"}, want: []string{"z", "x"}},
		{name: "explicit", explicit: []string{"z"}, want: []string{"z"}},
		{name: "explicit filtered by allow-list", allow: []string{"z"}, explicit: []string{"y", "z"}, want: []string{"z"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sms := newEasySms(t, []config.Option{config.WithDefaultGateways("x", "y")})
			for _, name := range []string{"x", "y", "z"} {
				sms.Extend(name, creatorFor(gatewaytest.NewMockGateway(name, nil)))
			}

			msg := message.NewBuilder().SetContent("hi").SetGateways(tt.allow...).Build()
			results, err := sms.Send(context.Background(), phone.New("18888888888"), msg, tt.explicit...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, results.Names())
		})
	}
}

func TestSend_AllFailedEscalates(t *testing.T) {
	rec := journal.NewMemoryRecorder(10)
	sms := newEasySms(t, nil, WithJournal(rec))
	sms.Extend("a", creatorFor(gatewaytest.Fail("a", "E1", "first")))
	sms.Extend("b", creatorFor(gatewaytest.Fail("b", "E2", "second")))

	results, err := sms.Send(context.Background(), phone.New("18888888888"), message.FromText("hi"), "a", "b")
	require.Error(t, err)
	assert.True(t, errors.IsNoGatewayAvailable(err))
	require.NotNil(t, results)
	assert.Equal(t, 2, results.Len())

	var nga *messenger.NoGatewayAvailableError
	require.ErrorAs(t, err, &nga)
	assert.Equal(t, "second", nga.LastError().Message)
	assert.Equal(t, "E1", nga.ErrorOf("a").Code)

	entries := rec.Entries()
	require.Len(t, entries, 1)
	assert.False(t, entries[0].Succeeded)
	assert.Equal(t, results.DispatchID(), entries[0].DispatchID)
}

func TestSend_NoCandidates(t *testing.T) {
	sms := newEasySms(t, nil)

	results, err := sms.Send(context.Background(), phone.New("18888888888"), message.FromText("hi"))
	assert.True(t, errors.IsNoGatewayAvailable(err))
	require.NotNil(t, results)
	assert.Equal(t, 0, results.Len())
}

func TestSend_UnknownGatewayAborts(t *testing.T) {
	sms := newEasySms(t, nil)
	a := gatewaytest.NewMockGateway("a", nil)
	sms.Extend("a", creatorFor(a))

	results, err := sms.Send(context.Background(), phone.New("18888888888"), message.FromText("hi"), "missing", "a")
	require.Error(t, err)
	assert.Nil(t, results)
	assert.True(t, errors.IsInvalidArgument(err))
	assert.Zero(t, a.Calls())
}

func TestSendTo(t *testing.T) {
	sms := newEasySms(t, nil, WithConcurrency(2))
	a := gatewaytest.NewMockGateway("a", nil)
	sms.Extend("a", creatorFor(a))

	results, err := sms.SendTo(context.Background(), "+8618888888888", map[string]any{
		"content":  func(g message.Gateway) string { return g.Name() + "-x" },
		"gateways": []string{"a"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, results.Succeeded())
	assert.Equal(t, []string{"a-x"}, a.Contents())

	_, err = sms.SendTo(context.Background(), "1", 42)
	assert.True(t, errors.IsInvalidArgument(err))
}

func TestRetryAndClose(t *testing.T) {
	sms := newEasySms(t, nil, WithRetry(gateway.RetryConfig{
		MaxTries:        3,
		InitialInterval: time.Millisecond,
		MaxInterval:     time.Millisecond,
	}))

	attempts := 0
	flaky := gatewaytest.NewMockGateway("flaky", func(context.Context, *phone.Number, *message.Message, *config.Config) (gateway.Result, error) {
		attempts++
		if attempts < 3 {
			return nil, gateway.NewError("busy", 503, nil).AsTemporary()
		}
		return gateway.Result{"ok": true}, nil
	})
	sms.Extend("flaky", creatorFor(flaky))

	results, err := sms.Send(context.Background(), phone.New("18888888888"), message.FromText("hi"), "flaky")
	require.NoError(t, err)
	assert.Equal(t, []string{"flaky"}, results.Succeeded())
	assert.Equal(t, 3, flaky.Calls())

	require.NoError(t, sms.Close())
	assert.True(t, flaky.Closed(), "Close reaches through the retry wrapper")
}

func TestExtend_ReplacesCachedInstance(t *testing.T) {
	sms := newEasySms(t, nil)
	first := gatewaytest.NewMockGateway("log", nil)
	sms.Extend("log", creatorFor(first))

	gw, err := sms.Gateway("log")
	require.NoError(t, err)
	assert.Same(t, first, gw)

	second := gatewaytest.NewMockGateway("log", nil)
	sms.Extend("log", creatorFor(second))
	assert.True(t, first.Closed())

	gw, err = sms.Gateway("log")
	require.NoError(t, err)
	assert.Same(t, second, gw)
}

func TestExtend_DuringCreation(t *testing.T) {
	sms := newEasySms(t, nil)

	stale := gatewaytest.NewMockGateway("slow", nil)
	started := make(chan struct{})
	release := make(chan struct{})
	sms.Extend("slow", func(*config.Config, logger.Logger) (gateway.Gateway, error) {
		close(started)
		<-release
		return stale, nil
	})

	done := make(chan gateway.Gateway)
	go func() {
		gw, err := sms.Gateway("slow")
		assert.NoError(t, err)
		done <- gw
	}()

	<-started
	fresh := gatewaytest.NewMockGateway("slow", nil)
	sms.Extend("slow", creatorFor(fresh))
	close(release)

	select {
	case gw := <-done:
		assert.Same(t, fresh, gw)
	case <-time.After(2 * time.Second):
		t.Fatal("Gateway did not return")
	}
	assert.True(t, stale.Closed())

	gw, err := sms.Gateway("slow")
	require.NoError(t, err)
	assert.Same(t, fresh, gw)
}

func TestNew_InvalidOptions(t *testing.T) {
	o, err := config.New(config.WithDefaultGateways("a", "a"))
	require.NoError(t, err)

	_, err = New(o)
	assert.Error(t, err)
}
