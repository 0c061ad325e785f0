package amm

import "errors"

// Kind classifies an error by the stage that rejected the request.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindValidation
	KindAuthorization
	KindArithmetic
	KindSettlement
	KindState
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthorization:
		return "authorization"
	case KindArithmetic:
		return "arithmetic"
	case KindSettlement:
		return "settlement"
	case KindState:
		return "state"
	default:
		return "unknown"
	}
}

// Error is a classified program error. Sentinels are compared by identity,
// so wrap them with %w to add context.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

var (
	ErrInsufficientInput  = newError(KindValidation, "InsufficientInput", "input amount must be greater than zero")
	ErrUnsupportedMint    = newError(KindValidation, "UnsupportedMint", "mint is not a pool token")
	ErrInvalidFeeRate     = newError(KindValidation, "InvalidFeeRate", "fee rate must be within [0, 1)")
	ErrInvalidAccount     = newError(KindValidation, "InvalidAccount", "invalid account")
	ErrMintMismatch       = newError(KindValidation, "MintMismatch", "token account mint mismatch")
	ErrFeeAccountMismatch = newError(KindValidation, "FeeAccountMismatch", "fee account does not match pool")
	ErrZeroReserve        = newError(KindValidation, "ZeroReserve", "reserve balance must be greater than zero")

	ErrInvalidAuthority  = newError(KindAuthorization, "InvalidAuthority", "reserve authority does not match derived pool authority")
	ErrAuthorityMismatch = newError(KindAuthorization, "AuthorityMismatch", "stored bump does not derive the reserve authority")
	ErrUnauthorized      = newError(KindAuthorization, "Unauthorized", "missing or invalid signature")

	ErrArithmeticOverflow = newError(KindArithmetic, "ArithmeticOverflow", "arithmetic overflow")
	ErrInsufficientOutput = newError(KindArithmetic, "InsufficientOutput", "swap output rounds to zero")
	ErrReserveExhausted   = newError(KindArithmetic, "ReserveExhausted", "swap output would drain the reserve")
	ErrInvariantViolated  = newError(KindArithmetic, "InvariantViolated", "constant product decreased")

	ErrInsufficientFunds = newError(KindSettlement, "InsufficientFunds", "insufficient funds")

	ErrDuplicatePool   = newError(KindState, "DuplicatePool", "pool already exists")
	ErrPoolNotFound    = newError(KindState, "PoolNotFound", "pool not found")
	ErrAccountNotFound = newError(KindState, "AccountNotFound", "account not found")
)

// KindOf returns the kind of the first classified error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// CodeOf returns the code of the first classified error in err's chain, or "".
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
