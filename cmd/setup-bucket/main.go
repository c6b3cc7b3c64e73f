package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"course-video-service/pkg/config"
)

// setup-bucket เตรียม bucket สำหรับ STORAGE_TYPE=s3
// bucket ต้องเป็น private: playback ผ่าน /hls ของ API ที่ตรวจ stream token
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	s3cfg := cfg.Storage.S3

	fmt.Println("═══════════════════════════════════════════════════════════════")
	fmt.Println("  Course Video Bucket Setup")
	fmt.Println("═══════════════════════════════════════════════════════════════")
	fmt.Printf("\nEndpoint: %s\n", s3cfg.Endpoint)
	fmt.Printf("Bucket: %s\n", s3cfg.Bucket)
	fmt.Printf("Region: %s\n", s3cfg.Region)

	client, err := minio.New(s3cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(s3cfg.AccessKey, s3cfg.SecretKey, ""),
		Secure: s3cfg.UseSSL,
		Region: s3cfg.Region,
	})
	if err != nil {
		log.Fatalf("Failed to create client: %v", err)
	}

	ctx := context.Background()

	exists, err := client.BucketExists(ctx, s3cfg.Bucket)
	if err != nil {
		log.Fatalf("Failed to check bucket: %v", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, s3cfg.Bucket, minio.MakeBucketOptions{Region: s3cfg.Region}); err != nil {
			log.Fatalf("Failed to create bucket: %v", err)
		}
		fmt.Printf("\n✓ Bucket '%s' created\n", s3cfg.Bucket)
	} else {
		fmt.Printf("\n✓ Bucket '%s' exists\n", s3cfg.Bucket)
	}

	// ลบ policy เดิม (policy ว่าง = delete) ไม่ให้มี public read บน hls/*
	fmt.Print("Removing bucket policy... ")
	if err := client.SetBucketPolicy(ctx, s3cfg.Bucket, ""); err != nil {
		fmt.Printf("⚠️  %v\n", err)
	} else {
		fmt.Println("✓ OK (bucket is private)")
	}

	printCORSRule(cfg.App.CORSOrigins)

	fmt.Println("\n--- Testing Basic Operations ---")

	fmt.Print("Testing PutObject... ")
	testContent := []byte("test content for upload permission check")
	_, err = client.PutObject(ctx, s3cfg.Bucket, "test/upload-test.txt",
		bytes.NewReader(testContent), int64(len(testContent)),
		minio.PutObjectOptions{ContentType: "text/plain"})
	if err != nil {
		fmt.Printf("❌ Failed: %v\n", err)
	} else {
		fmt.Println("✓ OK")
		client.RemoveObject(ctx, s3cfg.Bucket, "test/upload-test.txt", minio.RemoveObjectOptions{})
	}

	// presigned PUT คือทางที่ client ใช้ upload ต้นฉบับ
	fmt.Print("Testing PresignedPutObject... ")
	if _, err := client.PresignedPutObject(ctx, s3cfg.Bucket, "test/presign-test.mp4", cfg.Upload.URLExpiry); err != nil {
		fmt.Printf("❌ Failed: %v\n", err)
	} else {
		fmt.Println("✓ OK")
	}

	fmt.Print("Testing ListObjects... ")
	listOK := true
	for obj := range client.ListObjects(ctx, s3cfg.Bucket, minio.ListObjectsOptions{MaxKeys: 1}) {
		if obj.Err != nil {
			fmt.Printf("❌ Failed: %v\n", obj.Err)
			listOK = false
			break
		}
	}
	if listOK {
		fmt.Println("✓ OK")
	}

	fmt.Println("\n═══════════════════════════════════════════════════════════════")
	fmt.Println("  Setup Complete!")
	fmt.Println("═══════════════════════════════════════════════════════════════")
}

// printCORSRule พิมพ์ CORS rule ที่ต้องตั้งให้ browser PUT ไฟล์ตรงไป bucket ได้
func printCORSRule(origins []string) {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	rule := []map[string]interface{}{
		{
			"AllowedOrigins": origins,
			"AllowedMethods": []string{"PUT"},
			"AllowedHeaders": []string{"*"},
			"ExposeHeaders":  []string{"ETag"},
			"MaxAgeSeconds":  3600,
		},
	}
	ruleJSON, _ := json.MarshalIndent(rule, "", "  ")

	fmt.Println("\n--- CORS rule for direct upload (set in provider dashboard) ---")
	fmt.Println(string(ruleJSON))
	fmt.Println("หมายเหตุ: GET ไม่ต้องเปิด เพราะ playback ไม่อ่านจาก bucket โดยตรง")
}
