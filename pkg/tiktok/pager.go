package tiktok

import "context"

// PageFetcher 按游标拉取一页
type PageFetcher[T any] func(ctx context.Context, cursor string) (*Page[T], error)

// Paginate 顺序翻页，直到某页不再返回 NextCursor
// 不设页数上限；fetch 或 each 任一出错立即中止并返回已处理条数
func Paginate[T any](ctx context.Context, fetch PageFetcher[T], each func(T) error) (int, error) {
	var (
		cursor    string
		processed int
	)
	for {
		page, err := fetch(ctx, cursor)
		if err != nil {
			return processed, err
		}
		for _, item := range page.Items {
			if err := each(item); err != nil {
				return processed, err
			}
			processed++
		}
		if page.NextCursor == "" {
			return processed, nil
		}
		cursor = page.NextCursor
	}
}

// FetchAll 拉取全部数据到内存
func FetchAll[T any](ctx context.Context, fetch PageFetcher[T]) ([]T, error) {
	var all []T
	_, err := Paginate(ctx, fetch, func(item T) error {
		all = append(all, item)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return all, nil
}
