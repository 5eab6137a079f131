package rental

import (
	"errors"

	"github.com/speps/go-hashids/v2"
)

var ErrInvalidReference = errors.New("invalid booking reference")

// References turns booking ids into short public codes and back.
type References struct {
	h *hashids.HashID
}

func NewReferences(salt string) (*References, error) {
	hd := hashids.NewData()
	hd.Salt = salt
	hd.MinLength = 8
	hd.Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	h, err := hashids.NewWithData(hd)
	if err != nil {
		return nil, err
	}
	return &References{h: h}, nil
}

func (r *References) Encode(bookingID int64) string {
	code, err := r.h.EncodeInt64([]int64{bookingID})
	if err != nil {
		return ""
	}
	return code
}

func (r *References) Decode(code string) (int64, error) {
	ids, err := r.h.DecodeInt64WithError(code)
	if err != nil || len(ids) != 1 {
		return 0, ErrInvalidReference
	}
	return ids[0], nil
}
