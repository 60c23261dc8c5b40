package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/stepwise/formwizard/pkg/api"
	"github.com/stepwise/formwizard/pkg/storage"
)

// cookieStore adapts the signed cookie codec to the storage.Store contract
// for a single request. Loads read the request cookie; saves and deletes
// write the response cookie
type cookieStore struct {
	c     *gin.Context
	codec *storage.CookieCodec
}

const stateCookiePrefix = "wizard_state_"

var cookieNameSanitizer = strings.NewReplacer(":", "_", "/", "_")

var _ storage.Store = (*cookieStore)(nil)

func newCookieStore(c *gin.Context, codec *storage.CookieCodec) *cookieStore {
	return &cookieStore{c: c, codec: codec}
}

func (cs *cookieStore) Load(
	_ context.Context, key string,
) (*api.WizardState, error) {
	value, err := cs.c.Cookie(cookieName(key))
	if errors.Is(err, http.ErrNoCookie) || value == "" {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return cs.codec.Decode(value)
}

func (cs *cookieStore) Save(
	_ context.Context, key string, st *api.WizardState,
) error {
	value, err := cs.codec.Encode(st)
	if err != nil {
		return err
	}
	cs.c.SetCookie(cookieName(key), value, 0, "/", "", false, true)
	return nil
}

func (cs *cookieStore) Delete(_ context.Context, key string) error {
	cs.c.SetCookie(cookieName(key), "", -1, "/", "", false, true)
	return nil
}

func cookieName(key string) string {
	return stateCookiePrefix + cookieNameSanitizer.Replace(key)
}
