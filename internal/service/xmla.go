package service

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"hermannm.dev/wrap"

	"aasquery/backend/helper"
	"aasquery/backend/internal/model"
)

const (
	soapNamespace     = "http://schemas.xmlsoap.org/soap/envelope/"
	xmlaNamespace     = "urn:schemas-microsoft-com:xml-analysis"
	xsdNamespace      = "http://www.w3.org/2001/XMLSchema"
	xsiNamespace      = "http://www.w3.org/2001/XMLSchema-instance"
	sqlNamespace      = "urn:schemas-microsoft-com:xml-sql"
	executeSOAPAction = "urn:schemas-microsoft-com:xml-analysis:Execute"
)

type executeEnvelope struct {
	XMLName xml.Name      `xml:"http://schemas.xmlsoap.org/soap/envelope/ Envelope"`
	Header  executeHeader `xml:"http://schemas.xmlsoap.org/soap/envelope/ Header"`
	Body    executeBody   `xml:"http://schemas.xmlsoap.org/soap/envelope/ Body"`
}

type executeHeader struct {
	BeginSession *beginSession `xml:"urn:schemas-microsoft-com:xml-analysis BeginSession"`
	Session      *sessionRef   `xml:"urn:schemas-microsoft-com:xml-analysis Session"`
	EndSession   *sessionRef   `xml:"urn:schemas-microsoft-com:xml-analysis EndSession"`
}

type beginSession struct{}

type sessionRef struct {
	SessionID string `xml:"SessionId,attr"`
}

type executeBody struct {
	Execute executeCommand `xml:"urn:schemas-microsoft-com:xml-analysis Execute"`
}

type executeCommand struct {
	Statement  string       `xml:"Command>Statement"`
	Properties propertyList `xml:"Properties>PropertyList"`
}

type propertyList struct {
	Catalog string `xml:"Catalog,omitempty"`
	Format  string `xml:"Format"`
	Content string `xml:"Content"`
}

type executeOptions struct {
	statement    string
	catalog      string
	beginSession bool
	sessionID    string
	endSession   bool
}

func buildExecuteRequest(options executeOptions) ([]byte, error) {
	envelope := executeEnvelope{
		Body: executeBody{
			Execute: executeCommand{
				Statement: options.statement,
				Properties: propertyList{
					Catalog: options.catalog,
					Format:  "Tabular",
					Content: "SchemaData",
				},
			},
		},
	}

	switch {
	case options.beginSession:
		envelope.Header.BeginSession = &beginSession{}
	case options.endSession:
		envelope.Header.EndSession = &sessionRef{SessionID: options.sessionID}
	case options.sessionID != "":
		envelope.Header.Session = &sessionRef{SessionID: options.sessionID}
	}

	body, err := xml.Marshal(envelope)
	if err != nil {
		return nil, wrap.Error(err, "failed to encode XMLA request")
	}
	return append([]byte(xml.Header), body...), nil
}

type soapFault struct {
	Code   string      `xml:"faultcode"`
	String string      `xml:"faultstring"`
	Errors []xmlaError `xml:"detail>Error"`
}

type xmlaError struct {
	Code        string `xml:"ErrorCode,attr"`
	Description string `xml:"Description,attr"`
}

// ServerError is a failure reported by the server inside an XMLA response,
// either as a SOAP fault or as an exception in the result.
type ServerError struct {
	Code     string
	Messages []string
}

func (err *ServerError) Error() string {
	if len(err.Messages) == 0 {
		return "server returned an error without description"
	}
	return strings.Join(err.Messages, "; ")
}

func (fault soapFault) toError() *ServerError {
	err := &ServerError{Code: fault.Code}
	for _, detail := range fault.Errors {
		if detail.Description != "" {
			err.Messages = append(err.Messages, detail.Description)
		}
	}
	if len(err.Messages) == 0 && fault.String != "" {
		err.Messages = append(err.Messages, fault.String)
	}
	return err
}

type rowsetColumn struct {
	element string
	name    string
	xsdType string
}

type rowsetSchema struct {
	columns []rowsetColumn
	index   map[string]int
}

func (schema *rowsetSchema) add(column rowsetColumn) int {
	if schema.index == nil {
		schema.index = make(map[string]int)
	}
	schema.columns = append(schema.columns, column)
	schema.index[column.element] = len(schema.columns) - 1
	return len(schema.columns) - 1
}

type executeResult struct {
	sessionID string
	rows      []model.Row
}

// decodeExecuteResponse reads an XMLA Execute response, building rows as the
// document streams in.
func decodeExecuteResponse(reader io.Reader) (executeResult, error) {
	decoder := xml.NewDecoder(reader)

	var result executeResult
	var schema rowsetSchema
	var serverErr *ServerError

	for {
		token, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return executeResult{}, wrap.Error(err, "failed to read XMLA response")
		}

		start, ok := token.(xml.StartElement)
		if !ok {
			continue
		}

		switch {
		case start.Name.Local == "Session" && start.Name.Space == xmlaNamespace:
			result.sessionID = attr(start, "", "SessionId")
		case start.Name.Local == "Fault" && start.Name.Space == soapNamespace:
			var fault soapFault
			if err := decoder.DecodeElement(&fault, &start); err != nil {
				return executeResult{}, wrap.Error(err, "failed to decode SOAP fault")
			}
			return executeResult{}, fault.toError()
		case start.Name.Local == "Error" && start.Name.Space != soapNamespace:
			if serverErr == nil {
				serverErr = &ServerError{}
			}
			if serverErr.Code == "" {
				serverErr.Code = attr(start, "", "ErrorCode")
			}
			if description := attr(start, "", "Description"); description != "" {
				serverErr.Messages = append(serverErr.Messages, description)
			}
		case start.Name.Local == "complexType" && attr(start, "", "name") == "row":
			schema, err = decodeRowSchema(decoder)
			if err != nil {
				return executeResult{}, err
			}
		case start.Name.Local == "row" && start.Name.Space != xsdNamespace:
			row, err := decodeRow(decoder, &schema)
			if err != nil {
				return executeResult{}, wrap.Errorf(err, "failed to decode row %d", len(result.rows)+1)
			}
			result.rows = append(result.rows, row)
		}
	}

	if serverErr != nil {
		return executeResult{}, serverErr
	}
	return result, nil
}

func decodeRowSchema(decoder *xml.Decoder) (rowsetSchema, error) {
	var schema rowsetSchema
	depth := 1

	for depth > 0 {
		token, err := decoder.Token()
		if err != nil {
			return rowsetSchema{}, wrap.Error(err, "failed to read rowset schema")
		}

		switch token := token.(type) {
		case xml.StartElement:
			depth++
			if token.Name.Local != "element" {
				continue
			}
			element := attr(token, "", "name")
			if element == "" {
				continue
			}
			name := attr(token, sqlNamespace, "field")
			if name == "" {
				name = helper.DecodeXMLName(element)
			}
			schema.add(rowsetColumn{
				element: element,
				name:    name,
				xsdType: attr(token, "", "type"),
			})
		case xml.EndElement:
			depth--
		}
	}

	return schema, nil
}

type cellContent struct {
	Text string `xml:",chardata"`
}

func decodeRow(decoder *xml.Decoder, schema *rowsetSchema) (model.Row, error) {
	values := make([]model.Value, len(schema.columns))

	for {
		token, err := decoder.Token()
		if err != nil {
			return model.Row{}, err
		}

		switch token := token.(type) {
		case xml.StartElement:
			i, known := schema.index[token.Name.Local]
			if !known {
				// Rowsets without an inline schema still get their cells, typed as strings.
				i = schema.add(rowsetColumn{
					element: token.Name.Local,
					name:    helper.DecodeXMLName(token.Name.Local),
				})
			}
			for len(values) < len(schema.columns) {
				values = append(values, model.Null())
			}

			var cell cellContent
			if err := decoder.DecodeElement(&cell, &token); err != nil {
				return model.Row{}, err
			}
			if attr(token, xsiNamespace, "nil") == "true" {
				continue
			}

			xsdType := schema.columns[i].xsdType
			if override := attr(token, xsiNamespace, "type"); override != "" {
				xsdType = override
			}

			value, err := convertCell(cell.Text, xsdType)
			if err != nil {
				return model.Row{}, wrap.Errorf(err, "invalid value for column '%s'", schema.columns[i].name)
			}
			values[i] = value
		case xml.EndElement:
			row := model.NewRow(len(values))
			for i, value := range values {
				row.Set(schema.columns[i].name, value)
			}
			return *row, nil
		}
	}
}

func convertCell(text string, xsdType string) (model.Value, error) {
	if i := strings.IndexByte(xsdType, ':'); i >= 0 {
		xsdType = xsdType[i+1:]
	}

	switch xsdType {
	case "", "string":
		return model.String(text), nil
	case "long", "int", "short", "byte", "integer", "unsignedInt", "unsignedShort", "unsignedByte":
		number, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
		if err != nil {
			return model.Null(), err
		}
		return model.Integer(number), nil
	case "unsignedLong":
		number, err := strconv.ParseUint(strings.TrimSpace(text), 10, 64)
		if err != nil {
			return model.Null(), err
		}
		if number > math.MaxInt64 {
			return model.Decimal(decimal.RequireFromString(strconv.FormatUint(number, 10))), nil
		}
		return model.Integer(int64(number)), nil
	case "double", "float":
		return convertFloat(strings.TrimSpace(text))
	case "decimal":
		number, err := decimal.NewFromString(strings.TrimSpace(text))
		if err != nil {
			return model.Null(), err
		}
		return model.Decimal(number), nil
	case "boolean":
		switch strings.TrimSpace(text) {
		case "true", "1":
			return model.Boolean(true), nil
		case "false", "0":
			return model.Boolean(false), nil
		default:
			return model.Null(), fmt.Errorf("invalid boolean '%s'", text)
		}
	case "dateTime", "date":
		timestamp, err := parseDateTime(strings.TrimSpace(text))
		if err != nil {
			return model.Null(), err
		}
		return model.DateTime(timestamp), nil
	default:
		return model.String(text), nil
	}
}

func convertFloat(text string) (model.Value, error) {
	switch text {
	case "INF":
		return model.Float(math.Inf(1)), nil
	case "-INF":
		return model.Float(math.Inf(-1)), nil
	case "NaN":
		return model.Float(math.NaN()), nil
	}

	number, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return model.Null(), err
	}
	return model.Float(number), nil
}

var dateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

// Timestamps without a zone designator are taken as UTC.
func parseDateTime(text string) (time.Time, error) {
	for _, layout := range dateTimeLayouts {
		if timestamp, err := time.Parse(layout, text); err == nil {
			return timestamp, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid dateTime '%s'", text)
}

func attr(element xml.StartElement, space string, local string) string {
	for _, attribute := range element.Attr {
		if attribute.Name.Local == local && (space == "" || attribute.Name.Space == space) {
			return attribute.Value
		}
	}
	return ""
}
