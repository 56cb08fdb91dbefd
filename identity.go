package tieba

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Identity is the device identity a Client presents. It is generated once
// per Client and does not change afterwards.
type Identity struct {
	ClientID    string // wappc_{unix ms}_{000..999}
	CUID        string // baidutiebaapp{uuid}
	CUIDGalaxy2 string // 32 uppercase hex digits followed by "|0"
}

// NewIdentity generates a random Identity.
func NewIdentity() (*Identity, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	u, err := uuid.NewRandom()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	galaxy := make([]byte, 16)
	if _, err = rand.Read(galaxy); err != nil {
		return nil, errors.WithStack(err)
	}
	return &Identity{
		ClientID:    fmt.Sprintf("wappc_%d_%03d", time.Now().UnixMilli(), n.Int64()),
		CUID:        "baidutiebaapp" + u.String(),
		CUIDGalaxy2: strings.ToUpper(hex.EncodeToString(galaxy)) + "|0",
	}, nil
}
