package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/carlmjohnson/requests"
	"hermannm.dev/devlog/log"
	"hermannm.dev/wrap"

	"aasquery/backend/internal/config"
	"aasquery/backend/internal/model"
)

const sessionCloseTimeout = 10 * time.Second

// AnalysisServicesClient executes statements against an Azure Analysis Services
// server over XMLA. Every Execute call resolves the cluster and opens its own
// session, which is ended before returning.
type AnalysisServicesClient struct {
	aas        config.AnalysisServices
	httpClient *http.Client
	scheme     string
}

type Option func(*AnalysisServicesClient)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(client *AnalysisServicesClient) {
		client.httpClient = httpClient
	}
}

// WithScheme overrides the https scheme used for the region and cluster hosts.
func WithScheme(scheme string) Option {
	return func(client *AnalysisServicesClient) {
		client.scheme = scheme
	}
}

func NewAnalysisServicesClient(aas config.AnalysisServices, options ...Option) *AnalysisServicesClient {
	client := &AnalysisServicesClient{
		aas:        aas,
		httpClient: &http.Client{Timeout: aas.Timeout},
		scheme:     "https",
	}
	for _, option := range options {
		option(client)
	}
	return client
}

func (client *AnalysisServicesClient) Execute(
	ctx context.Context,
	token string,
	statement string,
) (rows []model.Row, err error) {
	conn, err := client.open(ctx, token)
	if err != nil {
		return nil, &ExecutionError{Err: err}
	}
	defer conn.close(ctx)

	rows, err = conn.execute(ctx, statement)
	if err != nil {
		return nil, &ExecutionError{Err: err}
	}
	return rows, nil
}

type clusterResolution struct {
	ClusterFQDN    string `json:"clusterFQDN"`
	CoreServerName string `json:"coreServerName"`
	TenantID       string `json:"tenantId"`
}

func (client *AnalysisServicesClient) resolveCluster(
	ctx context.Context,
	token string,
) (clusterResolution, error) {
	var resolution clusterResolution
	var errBody string

	err := requests.
		URL(fmt.Sprintf("%s://%s/webapi/clusterResolve", client.scheme, client.aas.RegionHost)).
		Client(client.httpClient).
		Bearer(token).
		BodyJSON(map[string]string{"serverName": client.aas.ServerName}).
		AddValidator(requests.ValidatorHandler(requests.DefaultValidator, requests.ToString(&errBody))).
		ToJSON(&resolution).
		Post().
		Fetch(ctx)
	if err != nil {
		return clusterResolution{}, responseError(err, errBody)
	}

	if resolution.ClusterFQDN == "" {
		return clusterResolution{}, fmt.Errorf("server '%s' not found in region", client.aas.ServerName)
	}
	if resolution.CoreServerName == "" {
		resolution.CoreServerName = client.aas.ServerName
	}
	return resolution, nil
}

type connection struct {
	client     *AnalysisServicesClient
	token      string
	xmlaURL    string
	coreServer string
	sessionID  string
}

func (client *AnalysisServicesClient) open(ctx context.Context, token string) (*connection, error) {
	resolution, err := client.resolveCluster(ctx, token)
	if err != nil {
		return nil, wrap.Errorf(err, "failed to resolve server '%s'", client.aas.ConnectionString())
	}
	log.Debugf("resolved %s to cluster %s", client.aas.ServerName, resolution.ClusterFQDN)

	conn := &connection{
		client:     client,
		token:      token,
		xmlaURL:    fmt.Sprintf("%s://%s/webapi/xmla", client.scheme, resolution.ClusterFQDN),
		coreServer: resolution.CoreServerName,
	}

	result, err := conn.send(ctx, executeOptions{catalog: client.aas.Database, beginSession: true})
	if err != nil {
		return nil, wrap.Error(err, "failed to open session")
	}
	conn.sessionID = result.sessionID
	return conn, nil
}

func (conn *connection) execute(ctx context.Context, statement string) ([]model.Row, error) {
	result, err := conn.send(ctx, executeOptions{
		statement: statement,
		catalog:   conn.client.aas.Database,
		sessionID: conn.sessionID,
	})
	if err != nil {
		return nil, err
	}

	if result.rows == nil {
		return []model.Row{}, nil
	}
	return result.rows, nil
}

// close ends the server session. It runs even when ctx is already done, so it
// gets a context of its own.
func (conn *connection) close(ctx context.Context) {
	if conn.sessionID == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sessionCloseTimeout)
	defer cancel()

	_, err := conn.send(ctx, executeOptions{
		catalog:    conn.client.aas.Database,
		sessionID:  conn.sessionID,
		endSession: true,
	})
	if err != nil {
		log.ErrorCause(err, "failed to end XMLA session")
	}
}

func (conn *connection) send(ctx context.Context, options executeOptions) (executeResult, error) {
	body, err := buildExecuteRequest(options)
	if err != nil {
		return executeResult{}, err
	}

	var result executeResult
	var errBody string

	err = requests.
		URL(conn.xmlaURL).
		Client(conn.client.httpClient).
		Bearer(conn.token).
		ContentType("text/xml").
		Header("SOAPAction", executeSOAPAction).
		Header("x-ms-xmlaserver", conn.coreServer).
		BodyBytes(body).
		// SOAP faults arrive with status 500, and are decoded from the body.
		AddValidator(requests.ValidatorHandler(
			requests.CheckStatus(http.StatusOK, http.StatusInternalServerError),
			requests.ToString(&errBody),
		)).
		Handle(func(res *http.Response) error {
			decoded, decodeErr := decodeExecuteResponse(res.Body)
			if decodeErr != nil {
				return decodeErr
			}
			if res.StatusCode != http.StatusOK {
				return fmt.Errorf("unexpected status %d from XMLA endpoint", res.StatusCode)
			}
			result = decoded
			return nil
		}).
		Post().
		Fetch(ctx)
	if err != nil {
		return executeResult{}, responseError(err, errBody)
	}
	return result, nil
}

func responseError(err error, body string) error {
	body = strings.TrimSpace(body)
	if body == "" {
		return err
	}

	// XMLA endpoints answer some auth failures with a SOAP fault even on 4xx.
	var serverErr *ServerError
	if _, decodeErr := decodeExecuteResponse(strings.NewReader(body)); errors.As(decodeErr, &serverErr) {
		return serverErr
	}

	return wrap.Error(err, body)
}
