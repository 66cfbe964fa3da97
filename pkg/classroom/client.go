package classroom

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const apiBase = "https://classroom.googleapis.com/v1"

// ErrCredentialRevoked reports that the stored refresh token is expired or
// revoked. The caller must invalidate the credential so the user is prompted
// to reauthorize; transient network errors never wrap this sentinel.
var ErrCredentialRevoked = errors.New("classroom credential expired or revoked")

type Client struct {
	auth    *AuthService
	baseURL string
	timeout time.Duration
}

func NewClient(auth *AuthService) *Client {
	return &Client{
		auth:    auth,
		baseURL: apiBase,
		timeout: 30 * time.Second,
	}
}

// Fetch returns the user's active courses and their coursework, split into
// dated and undated items. A user with no active courses yields an empty
// result, not an error.
func (c *Client) Fetch(ctx context.Context, refreshToken string) (*FetchResult, error) {
	httpClient := oauth2.NewClient(ctx, c.auth.tokenSource(ctx, refreshToken))
	httpClient.Timeout = c.timeout

	courses, err := c.listCourses(ctx, httpClient)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}

	result := &FetchResult{}
	for _, course := range courses {
		result.CourseNames = append(result.CourseNames, course.Name)

		works, err := c.listCourseWork(ctx, httpClient, course.ID)
		if err != nil {
			if errors.Is(err, ErrCredentialRevoked) {
				return nil, fmt.Errorf("list coursework (course_id: %s): %w", course.ID, err)
			}
			// One broken course must not abort the whole fetch.
			zap.L().Warn("list coursework", zap.Error(err), zap.String("course_id", course.ID))
			continue
		}

		for _, work := range works {
			if work.ID == "" || work.Title == "" {
				zap.L().Warn("skip malformed coursework item",
					zap.String("course_id", course.ID), zap.String("work_id", work.ID))
				continue
			}

			externalID := fmt.Sprintf("%s_%s", course.ID, work.ID)

			if work.DueDate == nil {
				result.Undated = append(result.Undated, UndatedAssignment{
					CourseName: course.Name,
					Title:      work.Title,
					Link:       work.AlternateLink,
					ExternalID: externalID,
				})
				continue
			}

			result.Dated = append(result.Dated, Assignment{
				CourseName: course.Name,
				Title:      work.Title,
				DueDate:    dueTimestamp(work.DueDate, work.DueTime),
				Link:       work.AlternateLink,
				ExternalID: externalID,
			})
		}
	}

	return result, nil
}

// dueTimestamp combines Classroom's split date/time fields into one UTC
// instant. Items with a date but no time are due at end of day.
func dueTimestamp(date *apiDate, tod *apiTimeOfDay) time.Time {
	hours, minutes := 23, 59
	if tod != nil {
		hours, minutes = tod.Hours, tod.Minutes
	}
	return time.Date(date.Year, time.Month(date.Month), date.Day, hours, minutes, 0, 0, time.UTC)
}

func (c *Client) listCourses(ctx context.Context, httpClient *http.Client) ([]course, error) {
	var courses []course
	pageToken := ""

	for {
		params := url.Values{}
		params.Set("courseStates", "ACTIVE")
		params.Set("pageSize", "100")
		if pageToken != "" {
			params.Set("pageToken", pageToken)
		}

		var response coursesResponse
		if err := c.makeRequest(ctx, httpClient, c.baseURL+"/courses?"+params.Encode(), &response); err != nil {
			return nil, err
		}

		courses = append(courses, response.Courses...)
		if response.NextPageToken == "" {
			return courses, nil
		}
		pageToken = response.NextPageToken
	}
}

func (c *Client) listCourseWork(ctx context.Context, httpClient *http.Client, courseID string) ([]courseWork, error) {
	var works []courseWork
	pageToken := ""

	for {
		params := url.Values{}
		params.Set("pageSize", "100")
		if pageToken != "" {
			params.Set("pageToken", pageToken)
		}

		requestURL := fmt.Sprintf("%s/courses/%s/courseWork?%s", c.baseURL, courseID, params.Encode())

		var response courseWorkResponse
		if err := c.makeRequest(ctx, httpClient, requestURL, &response); err != nil {
			return nil, err
		}

		works = append(works, response.CourseWork...)
		if response.NextPageToken == "" {
			return works, nil
		}
		pageToken = response.NextPageToken
	}
}

func (c *Client) makeRequest(ctx context.Context, httpClient *http.Client, requestURL string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return fmt.Errorf("create request (url: %s): %w", requestURL, err)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		if isTokenRefreshFailure(err) {
			return fmt.Errorf("refresh access token: %w", ErrCredentialRevoked)
		}
		return fmt.Errorf("execute request (url: %s): %w", requestURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("request rejected (url: %s, status: %d): %w", requestURL, resp.StatusCode, ErrCredentialRevoked)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("request failed (url: %s, status: %d): %s", requestURL, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decode response (url: %s): %w", requestURL, err)
	}

	return nil
}

// isTokenRefreshFailure reports whether the transport error was the OAuth
// token endpoint rejecting our refresh token, as opposed to a network issue.
func isTokenRefreshFailure(err error) bool {
	var retrieveErr *oauth2.RetrieveError
	if !errors.As(err, &retrieveErr) {
		return false
	}
	if retrieveErr.Response == nil {
		return false
	}
	status := retrieveErr.Response.StatusCode
	return status == http.StatusBadRequest || status == http.StatusUnauthorized
}
