package gateway

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/dicedeck/app/client/internal/model"
	"github.com/lk2023060901/dicedeck/pkg/logger"
	"github.com/lk2023060901/dicedeck/pkg/serializer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

// fakeServer 把 LocalGateway 暴露为 REST 接口
type fakeServer struct {
	t       *testing.T
	backend *LocalGateway
	codec   serializer.Serializer
}

func (s *fakeServer) reply(w http.ResponseWriter, status int, env any) {
	data, err := s.codec.Serialize(env)
	require.NoError(s.t, err)
	w.Header().Set("Content-Type", s.codec.ContentType())
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func (s *fakeServer) result(w http.ResponseWriter, data any, err error) {
	var rej *RejectedError
	switch {
	case err == nil:
		s.reply(w, http.StatusOK, envelope[any]{Code: 0, Message: "ok", Data: data})
	case errors.As(err, &rej):
		s.reply(w, http.StatusOK, envelope[any]{Code: rej.Code, Message: rej.Detail})
	default:
		s.reply(w, http.StatusInternalServerError, envelope[any]{Code: 500, Message: err.Error()})
	}
}

func (s *fakeServer) decode(r *http.Request, v any) {
	raw, err := io.ReadAll(r.Body)
	require.NoError(s.t, err)
	require.NoError(s.t, s.codec.Deserialize(raw, v))
}

func (s *fakeServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /players/{id}/dice", func(w http.ResponseWriter, r *http.Request) {
		out, err := s.backend.FetchCollection(r.Context(), r.PathValue("id"))
		s.result(w, out, err)
	})
	mux.HandleFunc("POST /players/{id}/summon", func(w http.ResponseWriter, r *http.Request) {
		var req summonRequest
		s.decode(r, &req)
		out, err := s.backend.Summon(r.Context(), r.PathValue("id"), req.Count)
		s.result(w, out, err)
	})
	mux.HandleFunc("POST /players/{id}/dice/{dice}/upgrade", func(w http.ResponseWriter, r *http.Request) {
		out, err := s.backend.Upgrade(r.Context(), r.PathValue("id"), r.PathValue("dice"))
		s.result(w, out, err)
	})
	mux.HandleFunc("GET /players/{id}/resources", func(w http.ResponseWriter, r *http.Request) {
		out, err := s.backend.FetchResources(r.Context(), r.PathValue("id"))
		s.result(w, out, err)
	})
	mux.HandleFunc("GET /players/{id}/deck", func(w http.ResponseWriter, r *http.Request) {
		out, err := s.backend.FetchDeck(r.Context(), r.PathValue("id"))
		s.result(w, out, err)
	})
	mux.HandleFunc("PUT /players/{id}/deck", func(w http.ResponseWriter, r *http.Request) {
		var req saveDeckRequest
		s.decode(r, &req)
		s.result(w, struct{}{}, s.backend.SaveDeck(r.Context(), r.PathValue("id"), req.Slots))
	})
	return mux
}

func newHTTPPair(t *testing.T, codec string) (*HTTPGateway, *LocalGateway) {
	t.Helper()
	backend := newLocal(t, 9)
	ser, err := serializer.ByName(codec)
	require.NoError(t, err)

	srv := httptest.NewServer((&fakeServer{t: t, backend: backend, codec: ser}).handler())
	t.Cleanup(srv.Close)

	g, err := NewHTTPGateway(&HTTPConfig{BaseURL: srv.URL, Codec: codec}, logger.NewNoop(), nil)
	require.NoError(t, err)
	return g, backend
}

func TestHTTPGatewayRoundTrip(t *testing.T) {
	for _, codec := range []string{"json", "msgpack"} {
		t.Run(codec, func(t *testing.T) {
			ctx := context.Background()
			g, _ := newHTTPPair(t, codec)

			dice, err := g.FetchCollection(ctx, testPlayer)
			require.NoError(t, err)
			require.Len(t, dice, 3)
			assert.Equal(t, "fire", dice[0].Definition.ID)
			assert.Equal(t, int32(2), dice[0].Owned.ClassLevel)
			assert.Equal(t, model.UpgradeCost{CardsRequired: 5, GoldRequired: 300}, dice[0].Definition.UpgradeCosts[3])
			assert.Nil(t, dice[2].Owned)

			results, err := g.Summon(ctx, testPlayer, 11)
			require.NoError(t, err)
			assert.Len(t, results, 11)

			res, err := g.FetchResources(ctx, testPlayer)
			require.NoError(t, err)
			assert.Equal(t, int64(1500), res.Gems)

			require.NoError(t, g.SaveDeck(ctx, testPlayer, model.DeckSlots{"", "", "fire"}))
			deck, err := g.FetchDeck(ctx, testPlayer)
			require.NoError(t, err)
			assert.Equal(t, model.DeckSlots{"", "", "fire"}, deck)
		})
	}
}

func TestHTTPGatewayUpgradeScenario(t *testing.T) {
	ctx := context.Background()
	g, _ := newHTTPPair(t, "json")

	st, err := g.Upgrade(ctx, testPlayer, "fire")
	require.NoError(t, err)
	assert.Equal(t, &model.OwnedDiceState{Quantity: 0, ClassLevel: 3}, st)

	_, err = g.Upgrade(ctx, testPlayer, "fire")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRejectedByServer))
	assert.Equal(t, "not enough cards or gold", Detail(err))

	var rej *RejectedError
	require.True(t, errors.As(err, &rej))
	assert.Equal(t, http.StatusOK, rej.Status)
	assert.Equal(t, CodeNotEligible, rej.Code)
}

func TestHTTPGatewayNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/players/p1/resources":
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"code":503,"message":"maintenance","data":null}`))
		default:
			http.Error(w, "no such route", http.StatusNotFound)
		}
	}))
	defer srv.Close()

	g, err := NewHTTPGateway(&HTTPConfig{BaseURL: srv.URL}, logger.NewNoop(), nil)
	require.NoError(t, err)

	_, err = g.FetchResources(context.Background(), "p1")
	var rej *RejectedError
	require.True(t, errors.As(err, &rej))
	assert.Equal(t, http.StatusServiceUnavailable, rej.Status)
	assert.Equal(t, "maintenance", rej.Detail)

	_, err = g.FetchDeck(context.Background(), "p1")
	require.True(t, errors.As(err, &rej))
	assert.Equal(t, http.StatusNotFound, rej.Status)
	assert.Equal(t, "no such route", rej.Detail)
	assert.Equal(t, "rejected", ResultOf(err))
}

func TestHTTPGatewayNetworkFailures(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer slow.Close()

	g, err := NewHTTPGateway(&HTTPConfig{BaseURL: slow.URL, Timeout: 50 * time.Millisecond}, logger.NewNoop(), nil)
	require.NoError(t, err)
	_, err = g.FetchCollection(context.Background(), "p1")
	assert.True(t, errors.Is(err, ErrNetworkFailure), "timeout: %v", err)
	assert.Equal(t, "network unavailable, please try again", Detail(err))

	closed := httptest.NewServer(http.NotFoundHandler())
	closed.Close()
	g, err = NewHTTPGateway(&HTTPConfig{BaseURL: closed.URL}, logger.NewNoop(), nil)
	require.NoError(t, err)
	_, err = g.FetchCollection(context.Background(), "p1")
	assert.True(t, errors.Is(err, ErrNetworkFailure), "refused: %v", err)
}

func TestHTTPGatewayMalformedResponses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/players/p1/summon":
			_, _ = w.Write([]byte(`{"code":0,"message":"ok","data":[{"dice_id":"fire"}]}`))
		default:
			_, _ = w.Write([]byte(`<html>`))
		}
	}))
	defer srv.Close()

	g, err := NewHTTPGateway(&HTTPConfig{BaseURL: srv.URL}, logger.NewNoop(), nil)
	require.NoError(t, err)

	_, err = g.Summon(context.Background(), "p1", 11)
	assert.True(t, errors.Is(err, ErrMalformedResponse))

	_, err = g.FetchDeck(context.Background(), "p1")
	assert.True(t, errors.Is(err, ErrMalformedResponse))
	assert.True(t, errors.Is(err, ErrNetworkFailure))

	_, err = g.Summon(context.Background(), "p1", 3)
	assert.True(t, errors.Is(err, ErrInvalidSummonCount))
}

func TestHTTPGatewayMissingData(t *testing.T) {
	bodies := map[string][]byte{
		"null":    []byte(`{"code":0,"message":"ok","data":null}`),
		"missing": []byte(`{"code":0,"message":"ok"}`),
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write(body)
			}))
			defer srv.Close()

			ctx := context.Background()
			g, err := NewHTTPGateway(&HTTPConfig{BaseURL: srv.URL}, logger.NewNoop(), nil)
			require.NoError(t, err)

			dice, err := g.FetchCollection(ctx, "p1")
			assert.True(t, errors.Is(err, ErrMalformedResponse), "collection: %v", err)
			assert.True(t, errors.Is(err, ErrNetworkFailure))
			assert.Nil(t, dice)

			res, err := g.FetchResources(ctx, "p1")
			assert.True(t, errors.Is(err, ErrMalformedResponse), "resources: %v", err)
			assert.Nil(t, res)

			_, err = g.FetchDeck(ctx, "p1")
			assert.True(t, errors.Is(err, ErrMalformedResponse), "deck: %v", err)

			_, err = g.Summon(ctx, "p1", 1)
			assert.True(t, errors.Is(err, ErrMalformedResponse), "summon: %v", err)

			_, err = g.Upgrade(ctx, "p1", "fire")
			assert.True(t, errors.Is(err, ErrMalformedResponse), "upgrade: %v", err)

			// 保存卡组不需要 data
			assert.NoError(t, g.SaveDeck(ctx, "p1", model.DeckSlots{"fire"}))
		})
	}
}

func TestHTTPGatewayEmptyCollection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":0,"message":"ok","data":[]}`))
	}))
	defer srv.Close()

	g, err := NewHTTPGateway(&HTTPConfig{BaseURL: srv.URL}, logger.NewNoop(), nil)
	require.NoError(t, err)

	dice, err := g.FetchCollection(context.Background(), "p1")
	require.NoError(t, err)
	assert.Empty(t, dice)
}

func TestHTTPGatewayEscapesPath(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.EscapedPath()
		_, _ = w.Write([]byte(`{"code":0,"message":"ok","data":{"quantity":1,"class_level":2}}`))
	}))
	defer srv.Close()

	g, err := NewHTTPGateway(&HTTPConfig{BaseURL: srv.URL + "/api/"}, logger.NewNoop(), nil)
	require.NoError(t, err)

	st, err := g.Upgrade(context.Background(), "p 1", "a/b")
	require.NoError(t, err)
	assert.Equal(t, int32(2), st.ClassLevel)
	assert.Equal(t, "/api/players/p%201/dice/a%2Fb/upgrade", got)
}

func TestNewHTTPGatewayConfig(t *testing.T) {
	_, err := NewHTTPGateway(&HTTPConfig{}, logger.NewNoop(), nil)
	assert.Error(t, err)

	_, err = NewHTTPGateway(&HTTPConfig{BaseURL: "http://x", Codec: "xml"}, logger.NewNoop(), nil)
	assert.Error(t, err)

	g, err := NewHTTPGateway(&HTTPConfig{BaseURL: "http://x"}, logger.NewNoop(), nil)
	require.NoError(t, err)
	assert.Equal(t, "application/json", g.codec.ContentType())
	assert.Equal(t, 5*time.Second, g.config.Timeout)
}

func TestHTTPGatewayDisableLimits(t *testing.T) {
	g, err := NewHTTPGateway(&HTTPConfig{BaseURL: "http://x", Timeout: -1, RateLimit: -1}, logger.NewNoop(), nil)
	require.NoError(t, err)
	assert.Equal(t, rate.Inf, g.limiter.Limit())
	assert.Equal(t, time.Duration(-1), g.config.Timeout)

	// 0 表示未设置，取默认值
	g, err = NewHTTPGateway(&HTTPConfig{BaseURL: "http://x"}, logger.NewNoop(), nil)
	require.NoError(t, err)
	assert.Equal(t, rate.Limit(10), g.limiter.Limit())
	assert.Equal(t, 5*time.Second, g.config.Timeout)
}
