// Package client provides methods to do http GET / POST request.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"net"
	"net/http"
	"strings"
	"time"
)

var (
	httpClient *http.Client
	httpCtx    = context.Background()
)

const (
	maxIdleConns        int = 100
	maxIdleConnsPerHost int = 10
	maxConnsPerHost     int = 50
	idleConnTimeout     int = 90
)

// InitHTTPClient init http client
func InitHTTPClient() {
	httpClient = &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxConnsPerHost:     maxConnsPerHost,
			MaxIdleConns:        maxIdleConns,
			MaxIdleConnsPerHost: maxIdleConnsPerHost,
			IdleConnTimeout:     time.Duration(idleConnTimeout) * time.Second,
		},
		Timeout: defaultTimeout * time.Second,
	}
}

// HTTPGet http get
func HTTPGet(url string, params, headers map[string]string, timeout int) (*http.Response, error) {
	req, err := http.NewRequestWithContext(httpCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	addParams(req, params)
	addHeaders(req, headers)
	return doRequest(req, timeout)
}

// HTTPPost http post
func HTTPPost(url string, body interface{}, params, headers map[string]string, timeout int) (*http.Response, error) {
	req, err := http.NewRequestWithContext(httpCtx, http.MethodPost, url, nil)
	if err != nil {
		return nil, err
	}
	addParams(req, params)
	addHeaders(req, headers)
	if err := addPostBody(req, body); err != nil {
		return nil, err
	}
	return doRequest(req, timeout)
}

func addParams(req *http.Request, params map[string]string) {
	if len(params) == 0 {
		return
	}
	q := req.URL.Query()
	for key, val := range params {
		q.Add(key, val)
	}
	req.URL.RawQuery = q.Encode()
}

func addHeaders(req *http.Request, headers map[string]string) {
	for key, val := range headers {
		req.Header.Add(key, val)
	}
	if req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
	}
	req.Header.Set("Accept", "application/json")
}

func addPostBody(req *http.Request, body interface{}) error {
	if body == nil {
		return nil
	}
	jsonData, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req.Body = ioutil.NopCloser(bytes.NewBuffer(jsonData))
	req.ContentLength = int64(len(jsonData))
	return nil
}

func doRequest(req *http.Request, timeout int) (*http.Response, error) {
	if httpClient == nil {
		InitHTTPClient()
	}
	client := httpClient
	if timeout > 0 && timeout != defaultTimeout {
		ctimeout := time.Duration(timeout) * time.Second
		client = &http.Client{
			Transport: httpClient.Transport,
			Timeout:   ctimeout,
		}
	}
	return client.Do(req)
}

func readCloseBody(body io.ReadCloser) ([]byte, error) {
	defer func() {
		_ = body.Close()
	}()
	const maxReadContentLength = 1024 * 1024 * 10 // 10M
	return ioutil.ReadAll(io.LimitReader(body, maxReadContentLength))
}

func checkAndGetBody(resp *http.Response) ([]byte, error) {
	bodyData, err := readCloseBody(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != 200 {
		errText := strings.TrimSpace(string(bodyData))
		return nil, fmt.Errorf("wrong response status %v, body: %v", resp.StatusCode, errText)
	}
	return bodyData, nil
}
