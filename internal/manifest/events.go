package manifest

import "time"

// base fills the fields common to every event kind.
func base(now time.Time, run, prefecture, city, seedURL string, kind Kind) Event {
	return Event{
		Time:       now,
		Run:        run,
		Kind:       kind,
		Prefecture: prefecture,
		City:       city,
		SeedURL:    seedURL,
	}
}

func NewSeedStarted(now time.Time, run, prefecture, city, seedURL string) Event {
	return base(now, run, prefecture, city, seedURL, KindSeedStarted)
}

func NewSeedDone(now time.Time, run, prefecture, city, seedURL string, pagesFetched, filesDownloaded int, validator Validator) Event {
	evt := base(now, run, prefecture, city, seedURL, KindSeedDone)
	evt.PagesFetched = pagesFetched
	evt.FilesDownloaded = filesDownloaded
	if !validator.IsZero() {
		v := validator
		evt.IndexValidator = &v
	}
	return evt
}

func NewSeedSkipped(now time.Time, run, prefecture, city, seedURL string, reason SkipReason) Event {
	evt := base(now, run, prefecture, city, seedURL, KindSeedSkipped)
	evt.Reason = reason
	return evt
}

func NewPageSaved(now time.Time, run, prefecture, city, seedURL, url, path, contentSHA256 string) Event {
	evt := base(now, run, prefecture, city, seedURL, KindPageSaved)
	evt.URL = url
	evt.Path = path
	evt.ContentSHA256 = contentSHA256
	return evt
}

func NewLinkFound(now time.Time, run, prefecture, city, seedURL, pageURL, targetURL string, kind LinkKind) Event {
	evt := base(now, run, prefecture, city, seedURL, KindLinkFound)
	evt.PageURL = pageURL
	evt.TargetURL = targetURL
	evt.LinkKind = kind
	return evt
}

func NewDownloadedFile(now time.Time, run, prefecture, city, seedURL, url, path string, size int64, contentSHA256 string) Event {
	evt := base(now, run, prefecture, city, seedURL, KindDownloadedFile)
	evt.URL = url
	evt.Path = path
	evt.Size = size
	evt.ContentSHA256 = contentSHA256
	return evt
}

func NewRobotsDenied(now time.Time, run, prefecture, city, seedURL, url, host, pathPrefix string) Event {
	evt := base(now, run, prefecture, city, seedURL, KindRobotsDenied)
	evt.URL = url
	evt.Host = host
	evt.PathPrefix = pathPrefix
	return evt
}

func NewError(now time.Time, run, prefecture, city, seedURL, url, phase, message string) Event {
	evt := base(now, run, prefecture, city, seedURL, KindError)
	evt.URL = url
	evt.Phase = phase
	evt.Message = message
	return evt
}
