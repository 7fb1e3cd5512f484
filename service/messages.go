package service

import (
	"strconv"
	"strings"
	"time"

	"langlang/result"
)

// Messages are the texts sent to requesters.
type Messages struct {
	Placeholder     string
	AlreadyRunning  string
	UnknownLanguage string
	MalformedInput  string
	FailureTitle    string
	FailureBody     string

	// WaitNotice may contain {tasks}, replaced by the number of requesters ahead.
	WaitNotice string
}

// DefaultMessages are the texts the bot has always used.
var DefaultMessages = Messages{
	Placeholder:     "컴파일 중..",
	AlreadyRunning:  "이미 다른 코드를 실행 중입니다.",
	UnknownLanguage: "Unknown language",
	MalformedInput:  "사용법: 첫 줄에 언어, 다음 줄부터 코드를 적은 코드 블록을 보내주세요.",
	WaitNotice:      "잠시만 기다려주세요. (대기: {tasks}개)",
	FailureTitle:    "오류",
	FailureBody:     "코드 실행 서버에 연결할 수 없습니다.",
}

// DefaultNoticeTTL is how long a wait notice stays visible.
const DefaultNoticeTTL = 5 * time.Second

// Options configure an EvalService.
type Options struct {
	Messages  Messages
	Classify  result.Options
	NoticeTTL time.Duration
}

func (o Options) withDefaults() Options {
	m, d := &o.Messages, DefaultMessages
	m.Placeholder = orDefault(m.Placeholder, d.Placeholder)
	m.AlreadyRunning = orDefault(m.AlreadyRunning, d.AlreadyRunning)
	m.UnknownLanguage = orDefault(m.UnknownLanguage, d.UnknownLanguage)
	m.MalformedInput = orDefault(m.MalformedInput, d.MalformedInput)
	m.WaitNotice = orDefault(m.WaitNotice, d.WaitNotice)
	m.FailureTitle = orDefault(m.FailureTitle, d.FailureTitle)
	m.FailureBody = orDefault(m.FailureBody, d.FailureBody)
	if o.NoticeTTL <= 0 {
		o.NoticeTTL = DefaultNoticeTTL
	}
	return o
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func (m Messages) waitNotice(ahead int) string {
	return strings.ReplaceAll(m.WaitNotice, "{tasks}", strconv.Itoa(ahead))
}
