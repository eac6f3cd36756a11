package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"finboard/internal/core"
	"finboard/internal/services"
)

const maxBodyBytes = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report wire names, not Go field names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

// errMalformedBody marks request bodies that are not the JSON we expect.
var errMalformedBody = errors.New("malformed request body")

// requestError is a client mistake caught before the service layer.
type requestError struct {
	status int
	msg    string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &requestError{status: http.StatusBadRequest, msg: fmt.Sprintf(format, args...)}
}

func unprocessable(msg string) error {
	return &requestError{status: http.StatusUnprocessableEntity, msg: msg}
}

type createTransactionRequest struct {
	Type        string   `json:"type" validate:"required,oneof=income expense"`
	Amount      *float64 `json:"amount" validate:"required,gte=0,lte=1000000000000"`
	Category    string   `json:"category" validate:"max=100"`
	Description string   `json:"description" validate:"max=200"`
	Date        string   `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

func (req createTransactionRequest) toTransaction() (core.Transaction, error) {
	t := core.Transaction{
		Type:        core.TransactionType(req.Type),
		Amount:      *req.Amount,
		Category:    strings.TrimSpace(req.Category),
		Description: sanitizeInput(req.Description),
	}
	if req.Date != "" {
		d, err := core.ParseDate(req.Date)
		if err != nil {
			return core.Transaction{}, err
		}
		t.Date = d
	}
	return t, nil
}

// updateTransactionRequest holds the fields of a PUT; absent fields stay nil.
type updateTransactionRequest struct {
	Type        *string  `json:"type" validate:"omitempty,oneof=income expense"`
	Amount      *float64 `json:"amount" validate:"omitempty,gte=0,lte=1000000000000"`
	Category    *string  `json:"category" validate:"omitempty,max=100"`
	Description *string  `json:"description" validate:"omitempty,max=200"`
	Date        *string  `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

func (req updateTransactionRequest) toPatch() (services.TransactionPatch, error) {
	var p services.TransactionPatch
	if req.Type != nil {
		typ := core.TransactionType(*req.Type)
		p.Type = &typ
	}
	p.Amount = req.Amount
	if req.Category != nil {
		c := strings.TrimSpace(*req.Category)
		p.Category = &c
	}
	if req.Description != nil {
		d := sanitizeInput(*req.Description)
		p.Description = &d
	}
	if req.Date != nil {
		d, err := core.ParseDate(*req.Date)
		if err != nil {
			return services.TransactionPatch{}, err
		}
		p.Date = &d
	}
	return p, nil
}

type budgetRequest struct {
	Category string   `json:"category" validate:"required,notblank,max=100"`
	Limit    *float64 `json:"limit" validate:"required,gte=0,lte=1000000000000"`
}

// decodeJSON reads a size-limited JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return &requestError{status: http.StatusRequestEntityTooLarge, msg: "request body too large"}
		}
		return badRequest("read request body: %v", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return badRequest("request body is empty")
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return badRequest("%v: %v", errMalformedBody, err)
	}
	return nil
}

// parseCreateTransaction decodes and validates a POST /api/transactions body.
func parseCreateTransaction(w http.ResponseWriter, r *http.Request) (core.Transaction, error) {
	var req createTransactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return core.Transaction{}, err
	}
	if err := validate.Struct(req); err != nil {
		return core.Transaction{}, unprocessable(validationMessage(err, ""))
	}
	return req.toTransaction()
}

func parseUpdateTransaction(w http.ResponseWriter, r *http.Request) (services.TransactionPatch, error) {
	var req updateTransactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return services.TransactionPatch{}, err
	}
	if err := validate.Struct(req); err != nil {
		return services.TransactionPatch{}, unprocessable(validationMessage(err, ""))
	}
	return req.toPatch()
}

// parseBudgets requires the body to be a JSON array of budgets.
func parseBudgets(w http.ResponseWriter, r *http.Request) ([]core.CategoryBudget, error) {
	var raw json.RawMessage
	if err := decodeJSON(w, r, &raw); err != nil {
		return nil, err
	}
	if trimmed := bytes.TrimSpace(raw); len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, badRequest("budgets must be a JSON array")
	}

	var reqs []budgetRequest
	if err := json.Unmarshal(raw, &reqs); err != nil {
		return nil, badRequest("%v: %v", errMalformedBody, err)
	}

	budgets := make([]core.CategoryBudget, 0, len(reqs))
	for i, req := range reqs {
		if err := validate.Struct(req); err != nil {
			return nil, unprocessable(validationMessage(err, fmt.Sprintf("budgets[%d].", i)))
		}
		budgets = append(budgets, core.CategoryBudget{
			Category: strings.TrimSpace(req.Category),
			Limit:    *req.Limit,
		})
	}
	return budgets, nil
}

// validationMessage turns validator errors into one readable line.
func validationMessage(err error, prefix string) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := prefix + fe.Field()
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "notblank":
			msgs = append(msgs, field+" must not be blank")
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of [%s]", field, fe.Param()))
		case "gte":
			msgs = append(msgs, fmt.Sprintf("%s must be >= %s", field, fe.Param()))
		case "lte":
			msgs = append(msgs, fmt.Sprintf("%s must be <= %s", field, fe.Param()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", field, fe.Param()))
		case "datetime":
			msgs = append(msgs, field+" must be a date in YYYY-MM-DD format")
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s validation", field, fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}

// sanitizeInput drops control characters other than tab and newlines, and trims.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
