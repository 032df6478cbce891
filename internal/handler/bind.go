package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/service-marketplace/internal/codec"
	"github.com/iliyamo/service-marketplace/internal/errs"
	"github.com/iliyamo/service-marketplace/internal/model"
)

const (
	requestTimeout = 5 * time.Second
	maxBodyBytes   = 1 << 20
	maxImageBytes  = 5 << 20
)

func requestContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

func badBody(msg string, fields ...errs.FieldError) error {
	return errs.NewBadRequestError(msg, "INVALID_BODY", fields)
}

// decodeJSON unmarshals raw into dst and returns the top-level keys that
// were sent, sorted.
func decodeJSON(raw []byte, dst any) ([]string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		raw = []byte("{}")
	}
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keys); err != nil {
		return nil, badBody("request body must be a JSON object")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return nil, bodyError(err)
	}
	names := make([]string, 0, len(keys))
	for k := range keys {
		names = append(names, k)
	}
	sort.Strings(names)
	return names, nil
}

func bodyError(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return badBody("malformed request body", errs.FieldError{Field: typeErr.Field, Error: "must be a " + typeErr.Type.String()})
	}
	if errors.Is(err, codec.ErrInvalidAmount) {
		return badBody("malformed request body", errs.FieldError{Field: "price", Error: "must be a decimal amount"})
	}
	return badBody("malformed request body")
}

// bindJSON reads the request body as JSON into dst.
func bindJSON(c echo.Context, dst any) ([]string, error) {
	raw, err := io.ReadAll(io.LimitReader(c.Request().Body, maxBodyBytes+1))
	if err != nil {
		return nil, badBody("could not read request body")
	}
	if len(raw) > maxBodyBytes {
		return nil, errs.NewBadRequestError("request body too large", "BODY_TOO_LARGE", nil)
	}
	return decodeJSON(raw, dst)
}

// bindOffer accepts either a JSON body or multipart/form-data with a
// "payload" JSON part and an optional "image" file.
func bindOffer(c echo.Context, dst any) (*model.FileInput, error) {
	if !strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		_, err := bindJSON(c, dst)
		return nil, err
	}
	if _, err := decodeJSON([]byte(c.FormValue("payload")), dst); err != nil {
		return nil, err
	}
	fh, err := c.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, badBody("malformed multipart body")
	}
	return readImage(fh)
}

func readImage(fh *multipart.FileHeader) (*model.FileInput, error) {
	invalidImage := func(msg string) error {
		return errs.NewBadRequestError("validation failed", "VALIDATION_ERROR", []errs.FieldError{{Field: "image", Error: msg}})
	}
	if fh.Size > maxImageBytes {
		return nil, invalidImage("must not exceed 5 MB")
	}
	f, err := fh.Open()
	if err != nil {
		return nil, badBody("could not read image")
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxImageBytes+1))
	if err != nil {
		return nil, badBody("could not read image")
	}
	if len(data) == 0 {
		return nil, invalidImage("must not be empty")
	}
	if len(data) > maxImageBytes {
		return nil, invalidImage("must not exceed 5 MB")
	}
	ctype := http.DetectContentType(data)
	if !strings.HasPrefix(ctype, "image/") {
		return nil, invalidImage("must be an image")
	}
	return &model.FileInput{Filename: fh.Filename, ContentType: ctype, Data: data}, nil
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, errs.NewNotFoundError("resource not found", "")
	}
	return id, nil
}

// queryParams collects typed query values and their errors.
type queryParams struct {
	c      echo.Context
	fields []errs.FieldError
}

func (q *queryParams) fail(name, msg string) {
	q.fields = append(q.fields, errs.FieldError{Field: name, Error: msg})
}

func (q *queryParams) uintParam(name string) *uint64 {
	s := strings.TrimSpace(q.c.QueryParam(name))
	if s == "" {
		return nil
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		q.fail(name, "must be a positive integer")
		return nil
	}
	return &v
}

func (q *queryParams) intParam(name string, min int) *int {
	s := strings.TrimSpace(q.c.QueryParam(name))
	if s == "" {
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < min {
		q.fail(name, "must be an integer of at least "+strconv.Itoa(min))
		return nil
	}
	return &v
}

func (q *queryParams) priceParam(name string) *codec.Price {
	s := strings.TrimSpace(q.c.QueryParam(name))
	if s == "" {
		return nil
	}
	p, err := codec.ParsePrice(s)
	if err != nil {
		q.fail(name, "must be a decimal amount")
		return nil
	}
	return &p
}

func (q *queryParams) err() error {
	if len(q.fields) == 0 {
		return nil
	}
	return errs.NewBadRequestError("invalid query parameters", "VALIDATION_ERROR", q.fields)
}
