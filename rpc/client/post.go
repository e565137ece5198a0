package client

import (
	"encoding/json"
	"fmt"

	"github.com/crosslock/CrossChain-Solver/log"
)

const (
	defaultTimeout   = 60 // seconds
	defaultRequestID = 1
)

// Request json-rpc request
type Request struct {
	Method  string
	Params  interface{}
	Timeout int
	ID      int
}

// NewRequest new request with default timeout and id
func NewRequest(method string, params ...interface{}) *Request {
	return &Request{
		Method:  method,
		Params:  params,
		Timeout: defaultTimeout,
		ID:      defaultRequestID,
	}
}

// RequestBody json-rpc request body
type RequestBody struct {
	Version string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
	ID      int         `json:"id"`
}

type jsonError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (err *jsonError) Error() string {
	return fmt.Sprintf("json-rpc error %d, %s", err.Code, err.Message)
}

type jsonrpcResponse struct {
	Version string          `json:"jsonrpc,omitempty"`
	ID      json.RawMessage `json:"id,omitempty"`
	Error   *jsonError      `json:"error,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
}

// RPCPost json-rpc post to a single url
func RPCPost(result interface{}, url, method string, params ...interface{}) error {
	return RPCPostRequest(url, NewRequest(method, params...), result)
}

// RPCPostWithTimeout json-rpc post with timeout in seconds
func RPCPostWithTimeout(timeout int, result interface{}, url, method string, params ...interface{}) error {
	req := NewRequest(method, params...)
	req.Timeout = timeout
	return RPCPostRequest(url, req, result)
}

// RPCPostTryEachURL try each url in turn and return the first success.
// All node gateways of a network are interchangeable for read calls.
func RPCPostTryEachURL(result interface{}, urls []string, method string, params ...interface{}) (err error) {
	for _, url := range urls {
		err = RPCPost(result, url, method, params...)
		if err == nil {
			return nil
		}
		log.Trace("rpc post failed, try next url", "url", url, "method", method, "err", err)
	}
	if err == nil {
		err = fmt.Errorf("rpc post '%v' failed, no gateway url", method)
	}
	return err
}

// RPCPostRequest json-rpc post request
func RPCPostRequest(url string, req *Request, result interface{}) error {
	reqBody := &RequestBody{
		Version: "2.0",
		Method:  req.Method,
		Params:  req.Params,
		ID:      req.ID,
	}
	resp, err := HTTPPost(url, reqBody, nil, nil, req.Timeout)
	if err != nil {
		return err
	}
	bodyData, err := checkAndGetBody(resp)
	if err != nil {
		return fmt.Errorf("rpc post '%v' error: %w", req.Method, err)
	}
	var rpcResp jsonrpcResponse
	if err = json.Unmarshal(bodyData, &rpcResp); err != nil {
		return fmt.Errorf("json unmarshal rpc response error: %w", err)
	}
	if rpcResp.Error != nil {
		return fmt.Errorf("rpc method '%v' error: %w", req.Method, rpcResp.Error)
	}
	if len(rpcResp.Result) == 0 || string(rpcResp.Result) == "null" {
		return ErrRPCNullResult
	}
	return json.Unmarshal(rpcResp.Result, result)
}
