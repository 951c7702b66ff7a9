package service

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Inbound event names
const (
	EvJoin               = "join"
	EvJoinRoom           = "joinRoom"
	EvCreateRoom         = "createRoom"
	EvAddRoom            = "addRoom"
	EvDoesRoomExist      = "doesRoomExist"
	EvGetRoom            = "getRoom"
	EvPickSide           = "pickSide"
	EvMove               = "move"
	EvRestart            = "restart"
	EvKick               = "kick"
	EvMessage            = "message"
	EvHandleLeave        = "handleLeave"
	EvCheckTokenValidity = "checkTokenValidity"
	EvRegister           = "register"
	EvLogin              = "login"
	EvGuest              = "guest"
	EvGetProfile         = "getProfile"
	EvGetRanking         = "getRanking"
)

// Outbound event names. move, message and getRanking share their inbound name.
const (
	OutRoomData             = "roomData"
	OutRoomRequiresPassword = "roomRequiresPassword"
	OutRoomError            = "roomError"
	OutRoomAdded            = "roomAdded"
	OutRoomNameTaken        = "roomNameTaken"
	OutNewRoom              = "newRoom"
	OutRemoveRoom           = "removeRoom"
	OutSidePicked           = "sidePicked"
	OutStartGame            = "startGame"
	OutMove                 = "move"
	OutWinner               = "winner"
	OutStopGame             = "stopGame"
	OutMessage              = "message"
	OutIsTokenOk            = "isTokenOk"
	OutAuthOK               = "authOK"
	OutAuthFail             = "authFail"
	OutProfile              = "profile"
	OutRanking              = "getRanking"
)

// SystemSender is the chat sender of server notices
const SystemSender = "[SYSTEM]"

// MaxMessageLength caps chat text, in runes
const MaxMessageLength = 100

var ErrMalformed = errors.New("malformed message")

// Envelope is the wire frame: an event name and positional arguments
type Envelope struct {
	Event string            `json:"event"`
	Args  []json.RawMessage `json:"args"`
}

// Encode builds a frame for event
func Encode(event string, args ...interface{}) ([]byte, error) {
	if args == nil {
		args = []interface{}{}
	}
	return json.Marshal(struct {
		Event string        `json:"event"`
		Args  []interface{} `json:"args"`
	}{event, args})
}

// Decode parses a frame
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return env, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if env.Event == "" {
		return env, fmt.Errorf("%w: missing event", ErrMalformed)
	}
	return env, nil
}

// arg decodes the i-th argument into v. Missing arguments decode as null.
func (e Envelope) arg(i int, v interface{}) error {
	raw := json.RawMessage("null")
	if i < len(e.Args) && len(e.Args[i]) > 0 {
		raw = e.Args[i]
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: argument %d: %v", ErrMalformed, i, err)
	}
	return nil
}

// str returns the i-th argument as a string; null and missing give ""
func (e Envelope) str(i int) (string, error) {
	var s *string
	if err := e.arg(i, &s); err != nil {
		return "", err
	}
	if s == nil {
		return "", nil
	}
	return *s, nil
}

// roomForm is the createRoom payload
type roomForm struct {
	Name             string `json:"name"`
	Owner            string `json:"owner"`
	RequiresPassword bool   `json:"requiresPassword"`
	Password         string `json:"password"`
}

type registerForm struct {
	Nick     string `json:"nick"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginForm struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}
