package handler

import (
	"github.com/000hen/changelogs.cc/internal/session"
	"github.com/000hen/changelogs.cc/internal/utils"
)

// stateLength applies to both state and nonce.
const stateLength = 32

func newLoginState() (session.LoginState, error) {
	state, err := utils.RandomString(stateLength)
	if err != nil {
		return session.LoginState{}, err
	}
	nonce, err := utils.RandomString(stateLength)
	if err != nil {
		return session.LoginState{}, err
	}
	return session.LoginState{State: state, Nonce: nonce}, nil
}
