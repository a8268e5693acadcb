package errors

import stderrors "errors"

var (
	ErrNodeClosed      = stderrors.New("node: closed")
	ErrGenesisApplied  = stderrors.New("node: genesis already applied")
	ErrNilDatabase     = stderrors.New("node: database must not be nil")
	ErrReceiverPresent = stderrors.New("node: receiver already registered")
)
