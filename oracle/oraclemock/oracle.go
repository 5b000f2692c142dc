// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package oraclemock is a hand-written gomock-style mock of oracle.Oracle,
// following the teacher's convention of a thin *mock package per
// mockable interface (e.g. validatorsmock.State) rather than an
// interface buried behind build tags.
package oraclemock

import (
	"context"
	"reflect"

	"go.uber.org/mock/gomock"

	"github.com/luxfi/wws/ids"
	"github.com/luxfi/wws/oracle"
)

// Oracle is a mock of oracle.Oracle.
type Oracle struct {
	ctrl     *gomock.Controller
	recorder *OracleMockRecorder
}

// OracleMockRecorder is the recorder for Oracle.
type OracleMockRecorder struct {
	mock *Oracle
}

// NewOracle constructs a new mock Oracle.
func NewOracle(ctrl *gomock.Controller) *Oracle {
	m := &Oracle{ctrl: ctrl}
	m.recorder = &OracleMockRecorder{mock: m}
	return m
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *Oracle) EXPECT() *OracleMockRecorder {
	return m.recorder
}

// Propose mocks oracle.Oracle.Propose.
func (m *Oracle) Propose(ctx context.Context, taskDescription string) (oracle.Plan, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Propose", ctx, taskDescription)
	ret0, _ := ret[0].(oracle.Plan)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// Propose indicates an expected call of Propose.
func (mr *OracleMockRecorder) Propose(ctx, taskDescription interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Propose", reflect.TypeOf((*Oracle)(nil).Propose), ctx, taskDescription)
}

// Critique mocks oracle.Oracle.Critique.
func (m *Oracle) Critique(ctx context.Context, planSet map[ids.ID][]byte, asAdversary bool) (map[ids.ID]oracle.Critique, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Critique", ctx, planSet, asAdversary)
	ret0, _ := ret[0].(map[ids.ID]oracle.Critique)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// Critique indicates an expected call of Critique.
func (mr *OracleMockRecorder) Critique(ctx, planSet, asAdversary interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Critique", reflect.TypeOf((*Oracle)(nil).Critique), ctx, planSet, asAdversary)
}

// Execute mocks oracle.Oracle.Execute.
func (m *Oracle) Execute(ctx context.Context, subtask oracle.Subtask) ([]byte, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Execute", ctx, subtask)
	ret0, _ := ret[0].([]byte)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// Execute indicates an expected call of Execute.
func (mr *OracleMockRecorder) Execute(ctx, subtask interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Execute", reflect.TypeOf((*Oracle)(nil).Execute), ctx, subtask)
}

// Synthesize mocks oracle.Oracle.Synthesize.
func (m *Oracle) Synthesize(ctx context.Context, taskDescription string, subresults [][]byte) ([]byte, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Synthesize", ctx, taskDescription, subresults)
	ret0, _ := ret[0].([]byte)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// Synthesize indicates an expected call of Synthesize.
func (mr *OracleMockRecorder) Synthesize(ctx, taskDescription, subresults interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Synthesize", reflect.TypeOf((*Oracle)(nil).Synthesize), ctx, taskDescription, subresults)
}

var _ oracle.Oracle = (*Oracle)(nil)
