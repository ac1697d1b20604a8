package tui

import "github.com/fyrsmithlabs/newsd/internal/reader"

type loadedMsg struct {
	err error
}

type searchDoneMsg struct {
	query string
	count int
	err   error
}

type savedMsg struct {
	title string
	err   error
}

type readMsg struct {
	title string
	err   error
}

type speechDoneMsg struct {
	session *reader.Session
}
