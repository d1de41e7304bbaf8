package bigbasket

import (
	"context"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"

	"github.com/snakeeebyte/BigBasketScraper/pipeline"
)

// FetchCategories retrieves the category tree and flattens it into the leaf
// categories that become scrape tasks. Non-leaf nodes only group their
// children and are never scraped themselves.
func (t *Transport) FetchCategories(ctx context.Context) ([]pipeline.Task, error) {
	sess, err := t.newSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("categories: %w", err)
	}
	defer sess.Close()

	var lastErr error
	for attempt := 1; attempt <= t.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		raw, status, err := sess.get(ctx, t.baseURL+categoryTreePath, nil)
		if err == nil && status != http.StatusOK {
			err = &pipeline.TransportError{Status: status}
		}
		if err == nil {
			tasks := flattenCategories(raw)
			if len(tasks) > 0 {
				return tasks, nil
			}
			err = &pipeline.ParseError{Reason: "category tree has no leaves"}
		}

		lastErr = err
		t.logger.Warn("category fetch failed", "attempt", attempt, "err", err)
		if attempt < t.maxRetries {
			backoffWait(ctx, t.backoffMin, t.backoffMax)
		}
	}

	return nil, fmt.Errorf("categories: %w", lastErr)
}

func flattenCategories(raw []byte) []pipeline.Task {
	var tasks []pipeline.Task

	var walk func(nodes gjson.Result)
	walk = func(nodes gjson.Result) {
		nodes.ForEach(func(_, node gjson.Result) bool {
			children := node.Get("children")
			if children.IsArray() && len(children.Array()) > 0 {
				walk(children)
				return true
			}
			tasks = append(tasks, pipeline.Task{
				ID:   node.Get("id").Int(),
				Kind: node.Get("type").String(),
				Slug: node.Get("slug").String(),
				Name: node.Get("name").String(),
			})
			return true
		})
	}
	walk(gjson.GetBytes(raw, "categories"))

	return tasks
}
