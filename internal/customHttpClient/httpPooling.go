package customHttpClient

import (
	"net/http"
	"sync"

	"github.com/ragready/pipeline/internal/config"
)

//the embedding provider and the index store reuse this transport so
//per-batch fan-out doesn't churn connections

var once sync.Once
var sharedClient *http.Client

func Get() *http.Client {
	once.Do(func() {
		sharedClient = &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        config.MaxIdleConns,
				MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
				IdleConnTimeout:     config.IdleConnTimeout,
			},
		}
	})
	return sharedClient
}
