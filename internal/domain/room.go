package domain

import "errors"

const MaxRoomIDLen = 64

var ErrRoomIDInvalid = errors.New("room id empty or too long")

type RoomID string

func ValidateRoomID(id RoomID) error {
	if len(id) == 0 || len(id) > MaxRoomIDLen {
		return ErrRoomIDInvalid
	}
	return nil
}
