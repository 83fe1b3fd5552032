package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	elasticsearch "github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/example/inkpress/internal/config"
	"github.com/example/inkpress/internal/models"
)

type Elastic struct {
	Client *elasticsearch.Client
	Index  string
}

func NewElastic(cfg *config.Config) (*Elastic, error) {
	cfgES := elasticsearch.Config{
		Addresses: []string{cfg.ElasticAddr},
	}
	if cfg.ElasticUsername != "" {
		cfgES.Username = cfg.ElasticUsername
		cfgES.Password = cfg.ElasticPassword
	}
	client, err := elasticsearch.NewClient(cfgES)
	if err != nil {
		return nil, err
	}
	return &Elastic{Client: client, Index: "posts"}, nil
}

func (e *Elastic) EnsurePostsIndex(ctx context.Context) error {
	res, err := e.Client.Indices.Exists([]string{e.Index}, e.Client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	mapping := map[string]interface{}{
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				"id":           map[string]string{"type": "long"},
				"owner_id":     map[string]string{"type": "long"},
				"title":        map[string]string{"type": "text"},
				"slug":         map[string]string{"type": "keyword"},
				"content":      map[string]string{"type": "text"},
				"excerpt":      map[string]string{"type": "text"},
				"tags":         map[string]string{"type": "keyword"},
				"status":       map[string]string{"type": "keyword"},
				"published_at": map[string]string{"type": "date"},
				"reading_time": map[string]string{"type": "integer"},
			},
		},
	}
	b, _ := json.Marshal(mapping)
	createRes, err := e.Client.Indices.Create(e.Index,
		e.Client.Indices.Create.WithContext(ctx),
		e.Client.Indices.Create.WithBody(bytes.NewReader(b)))
	if err != nil {
		return err
	}
	defer createRes.Body.Close()
	if createRes.IsError() {
		return fmt.Errorf("failed to create index: %s", createRes.String())
	}
	return nil
}

func postDoc(p *models.Post) map[string]interface{} {
	doc := map[string]interface{}{
		"id":           p.ID,
		"owner_id":     p.OwnerID,
		"title":        p.Title,
		"slug":         p.Slug,
		"content":      p.Content,
		"excerpt":      p.Excerpt,
		"tags":         []string(p.Tags),
		"status":       string(p.Status),
		"reading_time": p.ReadingTime,
	}
	if p.PublishedAt != nil {
		doc["published_at"] = p.PublishedAt.UTC().Format(time.RFC3339)
	}
	return doc
}

func (e *Elastic) IndexPost(ctx context.Context, p *models.Post) error {
	b, err := json.Marshal(postDoc(p))
	if err != nil {
		return err
	}
	req := esapi.IndexRequest{
		Index:      e.Index,
		DocumentID: strconv.FormatUint(uint64(p.ID), 10),
		Body:       bytes.NewReader(b),
		Refresh:    "true",
	}
	res, err := req.Do(ctx, e.Client)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("index error: %s", res.String())
	}
	return nil
}

func (e *Elastic) DeletePost(ctx context.Context, id uint) error {
	req := esapi.DeleteRequest{
		Index:      e.Index,
		DocumentID: strconv.FormatUint(uint64(id), 10),
		Refresh:    "true",
	}
	res, err := req.Do(ctx, e.Client)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("delete error: %s", res.String())
	}
	return nil
}

// visibleFilter restricts hits to posts readable by anyone at asOf.
func visibleFilter(asOf time.Time) []map[string]interface{} {
	return []map[string]interface{}{
		{"term": map[string]interface{}{"status": string(models.StatusPublished)}},
		{"range": map[string]interface{}{"published_at": map[string]interface{}{
			"lte": asOf.UTC().Format(time.RFC3339),
		}}},
	}
}

func (e *Elastic) SearchPosts(ctx context.Context, query string, asOf time.Time, limit int) ([]map[string]interface{}, error) {
	if limit <= 0 {
		limit = 10
	}
	body := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": map[string]interface{}{
					"multi_match": map[string]interface{}{
						"query":  query,
						"fields": []string{"title^2", "content", "excerpt", "tags"},
					},
				},
				"filter": visibleFilter(asOf),
			},
		},
		"size": limit,
	}
	return e.search(ctx, body)
}

func (e *Elastic) RelatedPosts(ctx context.Context, p *models.Post, asOf time.Time, limit int) ([]map[string]interface{}, error) {
	if len(p.Tags) == 0 {
		return []map[string]interface{}{}, nil
	}
	if limit <= 0 {
		limit = 5
	}
	var should []map[string]interface{}
	for _, tag := range p.Tags {
		should = append(should, map[string]interface{}{
			"term": map[string]interface{}{"tags": tag},
		})
	}
	body := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"should":               should,
				"minimum_should_match": 1,
				"filter":               visibleFilter(asOf),
				"must_not": map[string]interface{}{
					"term": map[string]interface{}{"id": p.ID},
				},
			},
		},
		"size": limit,
	}
	return e.search(ctx, body)
}

func (e *Elastic) search(ctx context.Context, body map[string]interface{}) ([]map[string]interface{}, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	res, err := e.Client.Search(
		e.Client.Search.WithContext(ctx),
		e.Client.Search.WithIndex(e.Index),
		e.Client.Search.WithBody(bytes.NewReader(b)),
		e.Client.Search.WithTrackTotalHits(true),
		e.Client.Search.WithTimeout(10*time.Second),
	)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("search error: %s", res.String())
	}
	return decodeHits(res.Body)
}

func decodeHits(body io.Reader) ([]map[string]interface{}, error) {
	var parsed struct {
		Hits struct {
			Hits []struct {
				Source map[string]interface{} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(body).Decode(&parsed); err != nil {
		return nil, err
	}
	results := make([]map[string]interface{}, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		results = append(results, h.Source)
	}
	return results, nil
}
