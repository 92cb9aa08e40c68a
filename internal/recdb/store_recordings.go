package recdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"recsync/internal/metadata"
)

// SaveRecording persists an analysis result within one transaction: the
// channel is created if missing, then the program and video rows are
// inserted or updated depending on whether an existing video record was
// supplied. The stale keyframe and ad-break data is cleared because content
// just changed; the background indexer repopulates it.
func (s *Store) SaveRecording(ctx context.Context, info *metadata.ProgramInfo, status Status, existing *Video) (*Video, error) {
	if info == nil {
		return nil, errors.New("program info is nil")
	}

	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	detailJSON, err := json.Marshal(info.Detail)
	if err != nil {
		return nil, fmt.Errorf("marshal detail: %w", err)
	}
	genresJSON, err := json.Marshal(info.Genres)
	if err != nil {
		return nil, fmt.Errorf("marshal genres: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin save tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var channelID *string
	if info.Channel != nil {
		if err := ensureChannel(ctx, tx, info.Channel); err != nil {
			return nil, err
		}
		channelID = &info.Channel.ID
	}

	// Concurrent pipeline runs for the same path are tolerated: a run that
	// started before another one saved re-checks inside the transaction and
	// turns its insert into an update.
	var videoID, programID int64
	haveRow := false
	if existing != nil {
		videoID, programID, haveRow = existing.ID, existing.ProgramID, true
	} else {
		err := tx.QueryRowContext(ctx,
			`SELECT id, program_id FROM recorded_videos WHERE file_path = ?`,
			info.Video.FilePath).Scan(&videoID, &programID)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return nil, fmt.Errorf("check existing video: %w", err)
		default:
			haveRow = true
		}
	}

	if haveRow {
		_, err = tx.ExecContext(ctx,
			`UPDATE recorded_programs
             SET channel_id = ?, network_id = ?, service_id = ?, event_id = ?,
                 title = ?, series_title = ?, episode_number = ?, subtitle = ?,
                 description = ?, detail_json = ?, start_time = ?, end_time = ?,
                 duration = ?, is_free = ?, genres_json = ?,
                 recording_start_margin = ?, recording_end_margin = ?,
                 is_partially_recorded = ?, primary_audio_type = ?,
                 primary_audio_language = ?, secondary_audio_type = ?,
                 secondary_audio_language = ?, updated_at = ?
             WHERE id = ?`,
			nullableString(channelID),
			nullableInt(info.NetworkID),
			nullableInt(info.ServiceID),
			nullableInt(info.EventID),
			info.Title,
			nullableString(info.SeriesTitle),
			nullableString(info.EpisodeNumber),
			nullableString(info.Subtitle),
			info.Description,
			string(detailJSON),
			info.StartTime.UTC().Format(time.RFC3339Nano),
			info.EndTime.UTC().Format(time.RFC3339Nano),
			info.Duration,
			boolToInt(info.IsFree),
			string(genresJSON),
			info.RecordingStartMargin,
			info.RecordingEndMargin,
			boolToInt(info.IsPartiallyRecorded),
			info.PrimaryAudioType,
			info.PrimaryAudioLanguage,
			nullableString(info.SecondaryAudioType),
			nullableString(info.SecondaryAudioLanguage),
			timestamp,
			programID,
		)
		if err != nil {
			return nil, fmt.Errorf("update program: %w", err)
		}
	} else {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO recorded_programs (
                channel_id, network_id, service_id, event_id, title,
                series_title, episode_number, subtitle, description,
                detail_json, start_time, end_time, duration, is_free,
                genres_json, recording_start_margin, recording_end_margin,
                is_partially_recorded, primary_audio_type,
                primary_audio_language, secondary_audio_type,
                secondary_audio_language, created_at, updated_at
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			nullableString(channelID),
			nullableInt(info.NetworkID),
			nullableInt(info.ServiceID),
			nullableInt(info.EventID),
			info.Title,
			nullableString(info.SeriesTitle),
			nullableString(info.EpisodeNumber),
			nullableString(info.Subtitle),
			info.Description,
			string(detailJSON),
			info.StartTime.UTC().Format(time.RFC3339Nano),
			info.EndTime.UTC().Format(time.RFC3339Nano),
			info.Duration,
			boolToInt(info.IsFree),
			string(genresJSON),
			info.RecordingStartMargin,
			info.RecordingEndMargin,
			boolToInt(info.IsPartiallyRecorded),
			info.PrimaryAudioType,
			info.PrimaryAudioLanguage,
			nullableString(info.SecondaryAudioType),
			nullableString(info.SecondaryAudioLanguage),
			timestamp,
			timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("insert program: %w", err)
		}
		programID, err = res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("program insert id: %w", err)
		}
	}

	video := info.Video
	if haveRow {
		_, err = tx.ExecContext(ctx,
			`UPDATE recorded_videos
             SET program_id = ?, status = ?, file_path = ?, file_hash = ?,
                 file_size = ?, file_created_at = ?, file_modified_at = ?,
                 recording_start_time = ?, recording_end_time = ?, duration = ?,
                 container_format = ?, video_codec = ?, video_codec_profile = ?,
                 video_scan_type = ?, video_frame_rate = ?,
                 video_resolution_width = ?, video_resolution_height = ?,
                 primary_audio_codec = ?, primary_audio_channel = ?,
                 primary_audio_sampling_rate = ?, secondary_audio_codec = ?,
                 secondary_audio_channel = ?, secondary_audio_sampling_rate = ?,
                 key_frames_json = '[]', cm_sections_json = '[]', updated_at = ?
             WHERE id = ?`,
			programID,
			status,
			video.FilePath,
			video.FileHash,
			video.FileSize,
			video.FileCreatedAt.UTC().Format(time.RFC3339Nano),
			video.FileModifiedAt.UTC().Format(time.RFC3339Nano),
			nullableTime(video.RecordingStartTime),
			nullableTime(video.RecordingEndTime),
			video.Duration,
			video.ContainerFormat,
			video.VideoCodec,
			video.VideoCodecProfile,
			video.VideoScanType,
			video.VideoFrameRate,
			video.Width,
			video.Height,
			video.PrimaryAudioCodec,
			video.PrimaryAudioChannel,
			video.PrimaryAudioSamplingRate,
			nullableString(video.SecondaryAudioCodec),
			nullableString(video.SecondaryAudioChannel),
			nullableInt(video.SecondaryAudioSamplingRate),
			timestamp,
			videoID,
		)
		if err != nil {
			return nil, fmt.Errorf("update video: %w", err)
		}
	} else {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO recorded_videos (
                program_id, status, file_path, file_hash, file_size,
                file_created_at, file_modified_at, recording_start_time,
                recording_end_time, duration, container_format, video_codec,
                video_codec_profile, video_scan_type, video_frame_rate,
                video_resolution_width, video_resolution_height,
                primary_audio_codec, primary_audio_channel,
                primary_audio_sampling_rate, secondary_audio_codec,
                secondary_audio_channel, secondary_audio_sampling_rate,
                key_frames_json, cm_sections_json, created_at, updated_at
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, '[]', '[]', ?, ?)`,
			programID,
			status,
			video.FilePath,
			video.FileHash,
			video.FileSize,
			video.FileCreatedAt.UTC().Format(time.RFC3339Nano),
			video.FileModifiedAt.UTC().Format(time.RFC3339Nano),
			nullableTime(video.RecordingStartTime),
			nullableTime(video.RecordingEndTime),
			video.Duration,
			video.ContainerFormat,
			video.VideoCodec,
			video.VideoCodecProfile,
			video.VideoScanType,
			video.VideoFrameRate,
			video.Width,
			video.Height,
			video.PrimaryAudioCodec,
			video.PrimaryAudioChannel,
			video.PrimaryAudioSamplingRate,
			nullableString(video.SecondaryAudioCodec),
			nullableString(video.SecondaryAudioChannel),
			nullableInt(video.SecondaryAudioSamplingRate),
			timestamp,
			timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("insert video: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit save: %w", err)
	}

	return s.GetVideoByPath(ctx, video.FilePath)
}

func ensureChannel(ctx context.Context, tx *sql.Tx, channel *metadata.ChannelInfo) error {
	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM channels WHERE id = ?`, channel.ID).Scan(&count); err != nil {
		return fmt.Errorf("check channel: %w", err)
	}
	if count > 0 {
		return nil
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO channels (
            id, display_channel_id, network_id, service_id,
            transport_stream_id, remocon_id, channel_number, type, name,
            is_subchannel, is_radiochannel, is_watchable
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		channel.ID,
		channel.DisplayChannelID,
		channel.NetworkID,
		channel.ServiceID,
		nullableInt(channel.TransportStreamID),
		channel.RemoconID,
		channel.ChannelNumber,
		channel.Type,
		channel.Name,
		boolToInt(channel.IsSubchannel),
		boolToInt(channel.IsRadiochannel),
		boolToInt(channel.IsWatchable),
	)
	if err != nil {
		return fmt.Errorf("insert channel: %w", err)
	}
	return nil
}

// GetVideoByPath fetches the video record for a file path, or nil when none exists.
func (s *Store) GetVideoByPath(ctx context.Context, path string) (*Video, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+videoColumns+` FROM recorded_videos WHERE file_path = ?`, path)
	video, err := scanVideo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get video by path: %w", err)
	}
	return video, nil
}

// ListVideos returns all video records ordered by file path. The batch scan
// uses this to build its expected-set index.
func (s *Store) ListVideos(ctx context.Context) ([]*Video, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+videoColumns+` FROM recorded_videos ORDER BY file_path`)
	if err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}
	defer rows.Close()

	var videos []*Video
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		videos = append(videos, video)
	}
	return videos, rows.Err()
}

// GetChannel fetches a channel by identifier, or nil when none exists.
func (s *Store) GetChannel(ctx context.Context, id string) (*Channel, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, display_channel_id, network_id, service_id,
                transport_stream_id, remocon_id, channel_number, type, name,
                is_subchannel, is_radiochannel, is_watchable
         FROM channels WHERE id = ?`, id)

	var (
		channel           Channel
		transportStreamID sql.NullInt64
		isSubchannel      int
		isRadiochannel    int
		isWatchable       int
	)
	err := row.Scan(
		&channel.ID,
		&channel.DisplayChannelID,
		&channel.NetworkID,
		&channel.ServiceID,
		&transportStreamID,
		&channel.RemoconID,
		&channel.ChannelNumber,
		&channel.Type,
		&channel.Name,
		&isSubchannel,
		&isRadiochannel,
		&isWatchable,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get channel: %w", err)
	}
	channel.TransportStreamID = intPtr(transportStreamID)
	channel.IsSubchannel = isSubchannel != 0
	channel.IsRadiochannel = isRadiochannel != 0
	channel.IsWatchable = isWatchable != 0
	return &channel, nil
}

// DeleteProgram removes a program record; the owned video row is deleted by
// the foreign key cascade. Channels are parents and stay.
func (s *Store) DeleteProgram(ctx context.Context, programID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM recorded_programs WHERE id = ?`, programID)
	if err != nil {
		return fmt.Errorf("delete program: %w", err)
	}
	return nil
}

// DeletePrograms removes a batch of program records in one transaction,
// cascading to their videos.
func (s *Store) DeletePrograms(ctx context.Context, programIDs []int64) (int64, error) {
	if len(programIDs) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin delete tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	args := make([]any, len(programIDs))
	for i, id := range programIDs {
		args[i] = id
	}
	res, err := tx.ExecContext(ctx,
		`DELETE FROM recorded_programs WHERE id IN (`+makePlaceholders(len(programIDs))+`)`, args...)
	if err != nil {
		return 0, fmt.Errorf("delete programs: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit delete: %w", err)
	}
	return affected, nil
}

// UpdateKeyFrames stores the keyframe seek index for a video record.
func (s *Store) UpdateKeyFrames(ctx context.Context, videoID int64, keyFrames []float64) error {
	if keyFrames == nil {
		keyFrames = []float64{}
	}
	payload, err := json.Marshal(keyFrames)
	if err != nil {
		return fmt.Errorf("marshal key frames: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE recorded_videos SET key_frames_json = ?, updated_at = ? WHERE id = ?`,
		string(payload),
		time.Now().UTC().Format(time.RFC3339Nano),
		videoID,
	)
	if err != nil {
		return fmt.Errorf("update key frames: %w", err)
	}
	return nil
}

// ListRecordings returns joined program/channel/video rows for display.
func (s *Store) ListRecordings(ctx context.Context) ([]RecordingRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT v.id, v.program_id, p.title, COALESCE(c.name, ''), v.status,
                v.duration, v.file_size, v.file_path, v.updated_at
         FROM recorded_videos v
         JOIN recorded_programs p ON p.id = v.program_id
         LEFT JOIN channels c ON c.id = p.channel_id
         ORDER BY p.start_time DESC`)
	if err != nil {
		return nil, fmt.Errorf("list recordings: %w", err)
	}
	defer rows.Close()

	var recordings []RecordingRow
	for rows.Next() {
		var (
			rec        RecordingRow
			statusStr  string
			updatedRaw string
		)
		if err := rows.Scan(&rec.VideoID, &rec.ProgramID, &rec.Title, &rec.ChannelName,
			&statusStr, &rec.Duration, &rec.FileSize, &rec.FilePath, &updatedRaw); err != nil {
			return nil, err
		}
		rec.Status = Status(statusStr)
		if updated, err := parseTimeString(updatedRaw); err == nil {
			rec.UpdatedAt = updated
		}
		recordings = append(recordings, rec)
	}
	return recordings, rows.Err()
}

// Stats returns a count of video records grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM recorded_videos GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("recording stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

const videoColumns = "id, program_id, status, file_path, file_hash, file_size, file_created_at, file_modified_at, recording_start_time, recording_end_time, duration, container_format, video_codec, video_codec_profile, video_scan_type, video_frame_rate, video_resolution_width, video_resolution_height, primary_audio_codec, primary_audio_channel, primary_audio_sampling_rate, secondary_audio_codec, secondary_audio_channel, secondary_audio_sampling_rate, key_frames_json, cm_sections_json, created_at, updated_at"

func scanVideo(scanner interface{ Scan(dest ...any) error }) (*Video, error) {
	var (
		id                int64
		programID         int64
		statusStr         string
		filePath          string
		fileHash          string
		fileSize          int64
		fileCreatedRaw    string
		fileModifiedRaw   string
		recStartRaw       sql.NullString
		recEndRaw         sql.NullString
		duration          float64
		containerFormat   string
		videoCodec        string
		videoCodecProfile string
		videoScanType     string
		videoFrameRate    float64
		width             int
		height            int
		primaryCodec      string
		primaryChannel    string
		primaryRate       int
		secondaryCodec    sql.NullString
		secondaryChannel  sql.NullString
		secondaryRate     sql.NullInt64
		keyFramesRaw      string
		cmSectionsRaw     string
		createdRaw        string
		updatedRaw        string
	)

	if err := scanner.Scan(
		&id,
		&programID,
		&statusStr,
		&filePath,
		&fileHash,
		&fileSize,
		&fileCreatedRaw,
		&fileModifiedRaw,
		&recStartRaw,
		&recEndRaw,
		&duration,
		&containerFormat,
		&videoCodec,
		&videoCodecProfile,
		&videoScanType,
		&videoFrameRate,
		&width,
		&height,
		&primaryCodec,
		&primaryChannel,
		&primaryRate,
		&secondaryCodec,
		&secondaryChannel,
		&secondaryRate,
		&keyFramesRaw,
		&cmSectionsRaw,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	video := &Video{
		ID:                       id,
		ProgramID:                programID,
		Status:                   Status(statusStr),
		FilePath:                 filePath,
		FileHash:                 fileHash,
		FileSize:                 fileSize,
		Duration:                 duration,
		ContainerFormat:          containerFormat,
		VideoCodec:               videoCodec,
		VideoCodecProfile:        videoCodecProfile,
		VideoScanType:            videoScanType,
		VideoFrameRate:           videoFrameRate,
		Width:                    width,
		Height:                   height,
		PrimaryAudioCodec:        primaryCodec,
		PrimaryAudioChannel:      primaryChannel,
		PrimaryAudioSamplingRate: primaryRate,
		SecondaryAudioCodec:      stringPtr(secondaryCodec),
		SecondaryAudioChannel:    stringPtr(secondaryChannel),
	}
	if secondaryRate.Valid {
		rate := int(secondaryRate.Int64)
		video.SecondaryAudioSamplingRate = &rate
	}

	if created, err := parseTimeString(fileCreatedRaw); err == nil {
		video.FileCreatedAt = created
	}
	if modified, err := parseTimeString(fileModifiedRaw); err == nil {
		video.FileModifiedAt = modified
	}
	video.RecordingStartTime = timePtr(recStartRaw)
	video.RecordingEndTime = timePtr(recEndRaw)

	if err := json.Unmarshal([]byte(keyFramesRaw), &video.KeyFrames); err != nil {
		video.KeyFrames = nil
	}
	if err := json.Unmarshal([]byte(cmSectionsRaw), &video.CMSections); err != nil {
		video.CMSections = nil
	}

	if created, err := parseTimeString(createdRaw); err == nil {
		video.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		video.UpdatedAt = updated
	}
	return video, nil
}
